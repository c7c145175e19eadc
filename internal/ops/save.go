package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nmarks/snapvault/internal/config"
	"github.com/nmarks/snapvault/internal/db"
	"github.com/nmarks/snapvault/internal/errors"
	"github.com/nmarks/snapvault/internal/snapshot"
)

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	SessionID    *string          // optional; generated as session-<uuid> when absent
	ProjectPath  *string          // optional; recorded on lazy session creation
	Summary      string           // required
	Context      snapshot.Context // required; rendered to text at write time
	FilesTouched  []string
	Decisions     []string
	NextSteps     *string
	Importance    string // normalized; unrecognized values become "normal"
	TokenEstimate *int   // optional override of the computed estimate
}

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	Snapshot snapshot.Snapshot `json:"snapshot"`
}

// Save validates, renders, and stores a new snapshot. Validation failures
// reject the whole write; nothing is partially applied. An unrecognized
// importance value is silently corrected to "normal", never an error.
func Save(ctx context.Context, database *sql.DB, cfg *config.Config, input SaveInput) (*SaveOutput, error) {
	summary := strings.TrimSpace(input.Summary)
	if summary == "" {
		return nil, errors.NewInvalidRequest("summary is required")
	}
	if n := snapshot.CountChars(summary); n > cfg.SummaryMaxChars {
		return nil, errors.NewFieldTooLarge("summary", cfg.SummaryMaxChars, n)
	}

	rendered := input.Context.Render()
	if rendered == "" {
		return nil, errors.NewInvalidRequest("context is required")
	}
	if n := snapshot.CountChars(rendered); n > cfg.ContextMaxChars {
		return nil, errors.NewFieldTooLarge("context", cfg.ContextMaxChars, n)
	}

	nextSteps := cleanOptionalString(input.NextSteps)
	if nextSteps != nil {
		if n := snapshot.CountChars(*nextSteps); n > cfg.NextStepsMaxChars {
			return nil, errors.NewFieldTooLarge("next_steps", cfg.NextStepsMaxChars, n)
		}
	}

	sessionID := resolveSessionID(input.SessionID)

	tokens := snapshot.EstimateTokens(summary + rendered + derefOrEmpty(nextSteps))
	if input.TokenEstimate != nil {
		if *input.TokenEstimate < 0 {
			return nil, errors.NewInvalidRequest("token_estimate must be non-negative")
		}
		tokens = *input.TokenEstimate
	}

	s := snapshot.Snapshot{
		SessionID:     sessionID,
		Summary:       summary,
		Context:       rendered,
		FilesTouched:  cleanStringList(input.FilesTouched),
		Decisions:     cleanStringList(input.Decisions),
		NextSteps:     nextSteps,
		Importance:    snapshot.NormalizeImportance(input.Importance),
		TokenEstimate: tokens,
		CreatedAt:     time.Now().UTC().Unix(),
	}

	if err := db.InsertSnapshot(ctx, database, &s, input.ProjectPath); err != nil {
		return nil, err
	}

	return &SaveOutput{Snapshot: s}, nil
}

// resolveSessionID returns the given session id, or generates a fresh one.
func resolveSessionID(sessionID *string) string {
	if sessionID != nil && strings.TrimSpace(*sessionID) != "" {
		return strings.TrimSpace(*sessionID)
	}
	return "session-" + uuid.NewString()
}

// cleanOptionalString trims an optional string, returning nil if empty.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// cleanStringList trims entries and drops empties, returning nil if none remain.
func cleanStringList(list []string) []string {
	cleaned := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
