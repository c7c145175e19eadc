package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nmarks/snapvault/internal/config"
	"github.com/nmarks/snapvault/internal/db"
	"github.com/nmarks/snapvault/internal/snapshot"
)

func testServer(t *testing.T) (http.Handler, *sql.DB) {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	srv := NewServer(database, config.DefaultConfig(), "test", "127.0.0.1", 0)
	return srv.Handler, database
}

func seedSnapshot(t *testing.T, database *sql.DB, sessionID, summary, contextText string) {
	t.Helper()
	s := &snapshot.Snapshot{
		SessionID:     sessionID,
		Summary:       summary,
		Context:       contextText,
		Importance:    snapshot.ImportanceNormal,
		TokenEstimate: 10,
		CreatedAt:     1700000000,
	}
	if err := db.InsertSnapshot(context.Background(), database, s, nil); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}
}

func get(t *testing.T, handler http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRootRedirectsToSessions(t *testing.T) {
	handler, _ := testServer(t)

	rec := get(t, handler, "/", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/sessions" {
		t.Errorf("Location = %q, want /sessions", loc)
	}
}

func TestSessionsPage(t *testing.T) {
	handler, database := testServer(t)
	seedSnapshot(t, database, "session-web", "web test entry", "free text")

	rec := get(t, handler, "/sessions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "session-web") {
		t.Errorf("sessions page missing the session id:\n%s", rec.Body.String())
	}
}

func TestSessionDetailPage(t *testing.T) {
	handler, database := testServer(t)
	seedSnapshot(t, database, "session-web", "finished the exporter",
		"## Description\nstreaming CSV export")

	rec := get(t, handler, "/sessions/session-web", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "finished the exporter") {
		t.Errorf("detail page missing the summary:\n%s", body)
	}
	// Markdown context is rendered to HTML.
	if !strings.Contains(body, "<h2>Description</h2>") {
		t.Errorf("context not rendered as markdown:\n%s", body)
	}
}

func TestSessionDetailNotFound(t *testing.T) {
	handler, _ := testServer(t)

	rec := get(t, handler, "/sessions/session-missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestErrorContentNegotiation(t *testing.T) {
	handler, _ := testServer(t)

	rec := get(t, handler, "/sessions/session-missing", map[string]string{
		"Accept": "application/json",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}

	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to unmarshal error body: %v", err)
	}
	if payload.Error.Code != "NOT_FOUND" {
		t.Errorf("error code = %q, want NOT_FOUND", payload.Error.Code)
	}
}

func TestHealthPage(t *testing.T) {
	handler, _ := testServer(t)

	rec := get(t, handler, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("health page missing status:\n%s", rec.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler, _ := testServer(t)

	rec := get(t, handler, "/sessions", nil)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing X-Content-Type-Options header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("missing X-Frame-Options header")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Errorf("missing Content-Security-Policy header")
	}
}

func TestFormatTokens(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
	}

	for _, tt := range tests {
		if got := formatTokens(tt.n); got != tt.want {
			t.Errorf("formatTokens(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
