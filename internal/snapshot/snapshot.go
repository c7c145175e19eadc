package snapshot

// Importance classifies how strongly a snapshot should be preferred when
// assembling context under a token budget.
type Importance string

const (
	ImportanceCritical  Importance = "critical"
	ImportanceImportant Importance = "important"
	ImportanceNormal    Importance = "normal"
	ImportanceReference Importance = "reference"
)

// NormalizeImportance maps a raw importance string to a valid tier.
// Unrecognized or empty values become ImportanceNormal. This is silent
// correction, not an error: an invalid importance never fails a write.
func NormalizeImportance(raw string) Importance {
	switch Importance(raw) {
	case ImportanceCritical, ImportanceImportant, ImportanceNormal, ImportanceReference:
		return Importance(raw)
	default:
		return ImportanceNormal
	}
}

// Weight returns the ordinal sort weight for the tier (critical highest).
func (i Importance) Weight() int {
	switch i {
	case ImportanceCritical:
		return 4
	case ImportanceImportant:
		return 3
	case ImportanceReference:
		return 1
	default:
		return 2
	}
}

// Multiplier returns the relevance-score multiplier for the tier.
func (i Importance) Multiplier() float64 {
	switch i {
	case ImportanceCritical:
		return 2.0
	case ImportanceImportant:
		return 1.5
	case ImportanceReference:
		return 0.5
	default:
		return 1.0
	}
}

// Snapshot is one saved unit of work progress. Immutable once written.
type Snapshot struct {
	// ID is assigned by the store at insert, monotonically increasing
	// across all sessions.
	ID int64 `json:"id"`

	// SessionID identifies the owning session.
	SessionID string `json:"session_id"`

	// Seq is the per-session sequence number, starting at 1. Unique
	// within a session; gaps only appear after deletions.
	Seq int `json:"seq"`

	// Summary is a short human-readable description of the work.
	Summary string `json:"summary"`

	// Context is the payload, rendered to a single string at write time.
	Context string `json:"context"`

	// FilesTouched lists file paths involved in the work (optional).
	FilesTouched []string `json:"files_touched,omitempty"`

	// Decisions lists decisions made during the work (optional).
	Decisions []string `json:"decisions,omitempty"`

	// NextSteps describes planned follow-up work (optional).
	NextSteps *string `json:"next_steps,omitempty"`

	// Importance is the tier used for selection priority.
	Importance Importance `json:"importance"`

	// TokenEstimate is the approximate token count used for budgeting.
	TokenEstimate int `json:"token_estimate"`

	// CreatedAt is the Unix timestamp (UTC, second precision) of the write.
	CreatedAt int64 `json:"created_at"`
}

// Session groups snapshots for one logical unit of work.
type Session struct {
	// SessionID is the unique session identifier, caller-supplied or
	// generated as "session-<uuid>".
	SessionID string `json:"session_id"`

	// ProjectPath is an optional filesystem path used for lookup.
	ProjectPath *string `json:"project_path,omitempty"`

	// StartedAt is the Unix timestamp when the session was created.
	StartedAt int64 `json:"started_at"`

	// LastSnapshotAt is the Unix timestamp of the most recent snapshot
	// insert, nil until the first snapshot.
	LastSnapshotAt *int64 `json:"last_snapshot_at,omitempty"`
}

// SessionSummary is a Session plus aggregate statistics, used by listing.
type SessionSummary struct {
	Session

	// SnapshotCount is the number of snapshots in the session.
	SnapshotCount int `json:"snapshot_count"`

	// TotalTokens is the sum of token estimates across the session's
	// snapshots, 0 if it has none.
	TotalTokens int `json:"total_tokens"`
}
