package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/nmarks/snapvault/internal/errors"
	"github.com/nmarks/snapvault/internal/snapshot"
)

func TestSave(t *testing.T) {
	database, cfg := testStore(t)

	result, err := Save(context.Background(), database, cfg, SaveInput{
		SessionID:    strPtr("session-a"),
		Summary:      "implemented the retry loop",
		Context:      snapshot.Context{FreeText: "exponential backoff capped at 30s"},
		FilesTouched: []string{"retry.go"},
		Decisions:    []string{"cap backoff at 30s"},
		NextSteps:    strPtr("add jitter"),
		Importance:   "important",
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	s := result.Snapshot
	if s.ID == 0 || s.Seq != 1 {
		t.Errorf("id/seq = %d/%d, want assigned id and seq 1", s.ID, s.Seq)
	}
	if s.Importance != snapshot.ImportanceImportant {
		t.Errorf("importance = %q, want important", s.Importance)
	}
	if s.TokenEstimate <= 0 {
		t.Errorf("token estimate not computed: %d", s.TokenEstimate)
	}
	if s.CreatedAt == 0 {
		t.Errorf("created_at not set")
	}
}

func TestSaveAssignsSequences(t *testing.T) {
	database, cfg := testStore(t)

	for i := 1; i <= 3; i++ {
		result, err := Save(context.Background(), database, cfg, SaveInput{
			SessionID: strPtr("session-a"),
			Summary:   "step",
			Context:   snapshot.Context{FreeText: "c"},
		})
		if err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
		if result.Snapshot.Seq != i {
			t.Errorf("save %d: seq = %d, want %d", i, result.Snapshot.Seq, i)
		}
	}
}

func TestSaveGeneratesSessionID(t *testing.T) {
	database, cfg := testStore(t)

	result, err := Save(context.Background(), database, cfg, SaveInput{
		Summary: "work without a session",
		Context: snapshot.Context{FreeText: "c"},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(result.Snapshot.SessionID, "session-") {
		t.Errorf("session id = %q, want session-<uuid>", result.Snapshot.SessionID)
	}
	if len(result.Snapshot.SessionID) <= len("session-") {
		t.Errorf("session id suffix missing: %q", result.Snapshot.SessionID)
	}
}

func TestSaveValidation(t *testing.T) {
	database, cfg := testStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		input    SaveInput
		wantCode errors.ErrorCode
	}{
		{
			name:     "missing summary",
			input:    SaveInput{Context: snapshot.Context{FreeText: "c"}},
			wantCode: errors.ErrInvalidRequest,
		},
		{
			name:     "whitespace summary",
			input:    SaveInput{Summary: "   ", Context: snapshot.Context{FreeText: "c"}},
			wantCode: errors.ErrInvalidRequest,
		},
		{
			name:     "missing context",
			input:    SaveInput{Summary: "s"},
			wantCode: errors.ErrInvalidRequest,
		},
		{
			name: "summary too large",
			input: SaveInput{
				Summary: strings.Repeat("x", 15000),
				Context: snapshot.Context{FreeText: "c"},
			},
			wantCode: errors.ErrFieldTooLarge,
		},
		{
			name: "context too large",
			input: SaveInput{
				Summary: "s",
				Context: snapshot.Context{FreeText: strings.Repeat("x", 100001)},
			},
			wantCode: errors.ErrFieldTooLarge,
		},
		{
			name: "next steps too large",
			input: SaveInput{
				Summary:   "s",
				Context:   snapshot.Context{FreeText: "c"},
				NextSteps: strPtr(strings.Repeat("x", 5001)),
			},
			wantCode: errors.ErrFieldTooLarge,
		},
		{
			name: "negative token override",
			input: SaveInput{
				Summary:       "s",
				Context:       snapshot.Context{FreeText: "c"},
				TokenEstimate: intPtr(-1),
			},
			wantCode: errors.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Save(ctx, database, cfg, tt.input)
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("Save() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}

	// Nothing above should have written anything.
	result, err := List(database, ListInput{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Count != 0 {
		t.Errorf("store has %d snapshots after rejected saves, want 0", result.Count)
	}
}

func TestSaveFieldTooLargeMessage(t *testing.T) {
	database, cfg := testStore(t)

	_, err := Save(context.Background(), database, cfg, SaveInput{
		Summary: strings.Repeat("x", 15000),
		Context: snapshot.Context{FreeText: "c"},
	})
	if err == nil {
		t.Fatal("expected error for oversized summary")
	}
	if !strings.Contains(err.Error(), "exceeds maximum length") {
		t.Errorf("error message = %q, want mention of exceeding maximum length", err.Error())
	}
}

func TestSaveSummaryAtLimit(t *testing.T) {
	database, cfg := testStore(t)

	_, err := Save(context.Background(), database, cfg, SaveInput{
		Summary: strings.Repeat("x", cfg.SummaryMaxChars),
		Context: snapshot.Context{FreeText: "c"},
	})
	if err != nil {
		t.Errorf("summary exactly at the limit should be accepted: %v", err)
	}
}

func TestSaveNormalizesImportance(t *testing.T) {
	database, cfg := testStore(t)

	result, err := Save(context.Background(), database, cfg, SaveInput{
		Summary:    "s",
		Context:    snapshot.Context{FreeText: "c"},
		Importance: "urgent",
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if result.Snapshot.Importance != snapshot.ImportanceNormal {
		t.Errorf("importance = %q, want normal (silent correction)", result.Snapshot.Importance)
	}
}

func TestSaveTokenOverride(t *testing.T) {
	database, cfg := testStore(t)

	result, err := Save(context.Background(), database, cfg, SaveInput{
		Summary:       "s",
		Context:       snapshot.Context{FreeText: "c"},
		TokenEstimate: intPtr(777),
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if result.Snapshot.TokenEstimate != 777 {
		t.Errorf("token estimate = %d, want override 777", result.Snapshot.TokenEstimate)
	}
}

func TestSaveStructuredContext(t *testing.T) {
	database, cfg := testStore(t)

	result, err := Save(context.Background(), database, cfg, SaveInput{
		Summary: "structured save",
		Context: snapshot.Context{Structured: &snapshot.StructuredContext{
			Description: "refactored config loading",
			Files:       []string{"config.go"},
		}},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.Contains(result.Snapshot.Context, "## Description") {
		t.Errorf("structured context not rendered: %q", result.Snapshot.Context)
	}
	if !strings.Contains(result.Snapshot.Context, "- config.go") {
		t.Errorf("files section missing: %q", result.Snapshot.Context)
	}
}

func TestSaveDropsEmptyListEntries(t *testing.T) {
	database, cfg := testStore(t)

	result, err := Save(context.Background(), database, cfg, SaveInput{
		Summary:      "s",
		Context:      snapshot.Context{FreeText: "c"},
		FilesTouched: []string{"  ", "", "a.go "},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(result.Snapshot.FilesTouched) != 1 || result.Snapshot.FilesTouched[0] != "a.go" {
		t.Errorf("files = %v, want [a.go]", result.Snapshot.FilesTouched)
	}
}
