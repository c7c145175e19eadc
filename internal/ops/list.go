package ops

import (
	"database/sql"
	"strings"

	"github.com/nmarks/snapvault/internal/db"
	"github.com/nmarks/snapvault/internal/snapshot"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	SessionID *string // optional; nil lists across all sessions
	Limit     int     // default: 50, clamped to [1, 100]
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items []snapshot.Snapshot `json:"items"`
	Count int                 `json:"count"`
}

// List retrieves snapshots, newest-sequence-first within a session or
// newest-created-first across all sessions.
func List(database *sql.DB, input ListInput) (*ListOutput, error) {
	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)

	var items []snapshot.Snapshot
	var err error
	if input.SessionID != nil && strings.TrimSpace(*input.SessionID) != "" {
		items, err = db.ListBySession(database, strings.TrimSpace(*input.SessionID), limit)
	} else {
		items, err = db.ListAll(database, limit)
	}
	if err != nil {
		return nil, err
	}

	return &ListOutput{Items: items, Count: len(items)}, nil
}
