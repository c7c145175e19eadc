package ops

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/nmarks/snapvault/internal/db"
	"github.com/nmarks/snapvault/internal/errors"
)

// CleanupInput contains parameters for the Cleanup operation.
type CleanupInput struct {
	SessionID  *string // optional; with KeepRecent, trims that session
	BeforeID   *int64  // optional; deletes all snapshots with id < BeforeID
	KeepRecent *int    // default: 5 when SessionID is given
}

// CleanupOutput contains the result of the Cleanup operation.
type CleanupOutput struct {
	Deleted int    `json:"deleted"`
	Message string `json:"message"`
}

// Cleanup deletes old snapshots. With a session id, everything except the
// KeepRecent most recent (by sequence) is deleted; with BeforeID, all
// snapshots below that id are deleted store-wide. With neither, it is an
// explicit no-op, not an error.
func Cleanup(database *sql.DB, input CleanupInput) (*CleanupOutput, error) {
	sessionID := ""
	if input.SessionID != nil {
		sessionID = strings.TrimSpace(*input.SessionID)
	}

	keepRecent := DefaultKeepRecent
	if input.KeepRecent != nil {
		if *input.KeepRecent < 0 {
			return nil, errors.NewInvalidRequest("keep_recent must be non-negative")
		}
		keepRecent = *input.KeepRecent
	}

	switch {
	case sessionID != "" && keepRecent > 0:
		deleted, err := db.DeleteKeepRecent(database, sessionID, keepRecent)
		if err != nil {
			return nil, err
		}
		return &CleanupOutput{
			Deleted: deleted,
			Message: fmt.Sprintf("Deleted %d snapshots from session %q, kept %d most recent", deleted, sessionID, keepRecent),
		}, nil

	case input.BeforeID != nil:
		deleted, err := db.DeleteBefore(database, *input.BeforeID)
		if err != nil {
			return nil, err
		}
		return &CleanupOutput{
			Deleted: deleted,
			Message: fmt.Sprintf("Deleted %d snapshots with id below %d", deleted, *input.BeforeID),
		}, nil

	default:
		return &CleanupOutput{Deleted: 0, Message: "Nothing to clean up"}, nil
	}
}
