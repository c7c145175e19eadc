package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nmarks/snapvault/internal/db"
	"github.com/nmarks/snapvault/internal/errors"
)

// ClearInput contains parameters for the Clear operation.
type ClearInput struct {
	SessionID string // required
}

// ClearOutput contains the result of the Clear operation.
type ClearOutput struct {
	Deleted int    `json:"deleted"`
	Message string `json:"message"`
}

// Clear deletes a session and all of its snapshots.
func Clear(ctx context.Context, database *sql.DB, input ClearInput) (*ClearOutput, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return nil, errors.NewInvalidRequest("session_id is required")
	}

	deleted, err := db.ClearSession(ctx, database, sessionID)
	if err != nil {
		return nil, err
	}

	return &ClearOutput{
		Deleted: deleted,
		Message: fmt.Sprintf("Cleared session %q (%d snapshots deleted)", sessionID, deleted),
	}, nil
}
