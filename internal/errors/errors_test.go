package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestVaultErrorMessage(t *testing.T) {
	err := NewInvalidRequest("summary is required")
	if got := err.Error(); got != "INVALID_REQUEST: summary is required" {
		t.Errorf("Error() = %q", got)
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("session", "session-abc")
	if err.Status != 404 {
		t.Errorf("status = %d, want 404", err.Status)
	}
	if !strings.Contains(err.Message, "session-abc") {
		t.Errorf("message missing identifier: %q", err.Message)
	}
	if err.Details["kind"] != "session" {
		t.Errorf("details = %v", err.Details)
	}
}

func TestNewFieldTooLarge(t *testing.T) {
	err := NewFieldTooLarge("summary", 10000, 15000)
	if err.Code != ErrFieldTooLarge || err.Status != 413 {
		t.Errorf("code/status = %s/%d", err.Code, err.Status)
	}
	if !strings.Contains(err.Message, "exceeds maximum length") {
		t.Errorf("message = %q", err.Message)
	}
	if err.Details["max_chars"] != 10000 || err.Details["actual_chars"] != 15000 {
		t.Errorf("details = %v", err.Details)
	}
}

func TestIs(t *testing.T) {
	if !Is(NewInvalidRequest("x"), ErrInvalidRequest) {
		t.Error("Is should match the code")
	}
	if Is(NewInvalidRequest("x"), ErrNotFound) {
		t.Error("Is should reject a different code")
	}
	if Is(fmt.Errorf("plain"), ErrInternal) {
		t.Error("Is should reject non-VaultError values")
	}
}

func TestNewInternalNilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("message = %q", err.Message)
	}
}
