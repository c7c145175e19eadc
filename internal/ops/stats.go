package ops

import (
	"database/sql"
	"strings"

	"github.com/nmarks/snapvault/internal/db"
	"github.com/nmarks/snapvault/internal/errors"
)

// StatsInput contains parameters for the Stats operation.
type StatsInput struct {
	SessionID string // required
}

// StatsOutput contains aggregate statistics for one session.
type StatsOutput struct {
	SessionID   string `json:"session_id"`
	Count       int    `json:"count"`
	TotalTokens int    `json:"total_tokens"`
	FirstTS     string `json:"first_ts"`
	LastTS      string `json:"last_ts"`
}

// Stats returns snapshot count, token total, and first/last timestamps
// for a session. An unknown session is a NOT_FOUND outcome.
func Stats(database *sql.DB, input StatsInput) (*StatsOutput, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return nil, errors.NewInvalidRequest("session_id is required")
	}

	agg, err := db.SessionStats(database, sessionID)
	if err != nil {
		return nil, err
	}

	out := &StatsOutput{
		SessionID:   sessionID,
		Count:       agg.Count,
		TotalTokens: agg.TotalTokens,
	}
	if agg.Count > 0 {
		out.FirstTS = formatTS(agg.FirstAt)
		out.LastTS = formatTS(agg.LastAt)
	}
	return out, nil
}
