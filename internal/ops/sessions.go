package ops

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/nmarks/snapvault/internal/db"
	"github.com/nmarks/snapvault/internal/errors"
	"github.com/nmarks/snapvault/internal/snapshot"
)

// ResolveSessionInput contains parameters for the ResolveSession operation.
type ResolveSessionInput struct {
	SessionID   *string // optional; generated when absent
	ProjectPath *string // optional; recorded on creation
}

// ResolveSessionOutput contains the resolved or created session.
type ResolveSessionOutput struct {
	Session snapshot.Session `json:"session"`
	Created bool             `json:"created"`
}

// ResolveSession returns the session with the given id, creating it if it
// does not exist. Without an id, a fresh session-<uuid> is created.
func ResolveSession(database *sql.DB, input ResolveSessionInput) (*ResolveSessionOutput, error) {
	sessionID := ""
	if input.SessionID != nil {
		sessionID = strings.TrimSpace(*input.SessionID)
	}

	if sessionID != "" {
		existing, err := db.GetSession(database, sessionID)
		if err == nil {
			return &ResolveSessionOutput{Session: *existing}, nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
	} else {
		sessionID = "session-" + uuid.NewString()
	}

	if err := db.EnsureSession(database, sessionID, input.ProjectPath); err != nil {
		return nil, err
	}
	created, err := db.GetSession(database, sessionID)
	if err != nil {
		return nil, err
	}
	return &ResolveSessionOutput{Session: *created, Created: true}, nil
}

// FindByProjectInput contains parameters for the FindByProject operation.
type FindByProjectInput struct {
	ProjectPath string // required
}

// FindByProjectOutput contains the lookup result. Session is nil when no
// session has the given project path (an absent result, not an error).
type FindByProjectOutput struct {
	Session *snapshot.Session `json:"session,omitempty"`
	Found   bool              `json:"found"`
}

// FindByProject returns the most recently active session for a project
// path. Sessions that have snapshots win over ones that never received
// any; started_at breaks remaining ties.
func FindByProject(database *sql.DB, input FindByProjectInput) (*FindByProjectOutput, error) {
	projectPath := strings.TrimSpace(input.ProjectPath)
	if projectPath == "" {
		return nil, errors.NewInvalidRequest("project_path is required")
	}

	session, err := db.FindSessionByProject(database, projectPath)
	if err != nil {
		return nil, err
	}
	return &FindByProjectOutput{Session: session, Found: session != nil}, nil
}

// ListSessionsInput contains parameters for the ListSessions operation.
type ListSessionsInput struct {
	Limit int // default: 20, clamped to [1, 100]
}

// ListSessionsOutput contains the session summaries, most recently
// active first.
type ListSessionsOutput struct {
	Sessions []snapshot.SessionSummary `json:"sessions"`
	Count    int                       `json:"count"`
}

// ListSessions returns sessions sorted by recency with aggregate
// snapshot counts and token totals.
func ListSessions(database *sql.DB, input ListSessionsInput) (*ListSessionsOutput, error) {
	limit := clampLimit(input.Limit, DefaultSessionLimit, MaxSessionLimit)

	sessions, err := db.ListSessions(database, limit)
	if err != nil {
		return nil, err
	}
	return &ListSessionsOutput{Sessions: sessions, Count: len(sessions)}, nil
}
