package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/nmarks/snapvault/internal/errors"
	"github.com/nmarks/snapvault/internal/snapshot"
)

// importanceWeight is the SQL expression for the canonical importance
// ordering (critical=4 > important=3 > normal=2 > reference=1).
const importanceWeight = `CASE importance
	WHEN 'critical' THEN 4
	WHEN 'important' THEN 3
	WHEN 'reference' THEN 1
	ELSE 2 END`

const snapshotColumns = `id, session_id, seq, summary, context,
	files_json, decisions_json, next_steps, importance, token_estimate, created_at`

// InsertSnapshot stores a new snapshot, assigning its id and per-session
// sequence number. The session row is created lazily if absent, and its
// last_snapshot_at is updated. All of this runs in one transaction:
// concurrent inserts for the same session never share a sequence number,
// and a crash mid-insert leaves neither half applied.
func InsertSnapshot(ctx context.Context, db *sql.DB, s *snapshot.Snapshot, projectPath *string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Lazy session creation; the insert is the write that takes the lock.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (session_id, project_path, started_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`, s.SessionID, toNullString(projectPath), s.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}

	// Next sequence number, computed inside the transaction so two racing
	// inserts cannot observe the same MAX(seq).
	var seq int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM snapshots WHERE session_id = ?
	`, s.SessionID).Scan(&seq)
	if err != nil {
		return errors.NewInternal(err)
	}

	filesJSON := toNullJSON(s.FilesTouched)
	decisionsJSON := toNullJSON(s.Decisions)

	result, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (
			session_id, seq, summary, context, files_json, decisions_json,
			next_steps, importance, token_estimate, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.SessionID, seq, s.Summary, s.Context, filesJSON, decisionsJSON,
		toNullString(s.NextSteps), string(s.Importance), s.TokenEstimate, s.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.NewInternal(err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET last_snapshot_at = ? WHERE session_id = ?
	`, s.CreatedAt, s.SessionID)
	if err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}

	s.ID = id
	s.Seq = seq
	return nil
}

// GetSnapshot retrieves a snapshot by id.
func GetSnapshot(db *sql.DB, id int64) (*snapshot.Snapshot, error) {
	row := db.QueryRow(`
		SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?
	`, id)

	s, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("snapshot", formatID(id))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// ListBySession returns snapshots for a session, newest sequence first.
func ListBySession(db *sql.DB, sessionID string, limit int) ([]snapshot.Snapshot, error) {
	rows, err := db.Query(`
		SELECT `+snapshotColumns+` FROM snapshots
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return collectSnapshots(rows)
}

// ListAll returns snapshots across all sessions, newest created_at first.
func ListAll(db *sql.DB, limit int) ([]snapshot.Snapshot, error) {
	rows, err := db.Query(`
		SELECT `+snapshotColumns+` FROM snapshots
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return collectSnapshots(rows)
}

// CandidatesBySession returns a session's snapshots in the canonical
// assembly order: importance weight descending, then sequence descending.
func CandidatesBySession(db *sql.DB, sessionID string) ([]snapshot.Snapshot, error) {
	rows, err := db.Query(`
		SELECT `+snapshotColumns+` FROM snapshots
		WHERE session_id = ?
		ORDER BY `+importanceWeight+` DESC, seq DESC
	`, sessionID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return collectSnapshots(rows)
}

// CandidatesAll returns snapshots across all sessions in the canonical
// assembly order: importance weight descending, then created_at descending.
func CandidatesAll(db *sql.DB) ([]snapshot.Snapshot, error) {
	rows, err := db.Query(`
		SELECT ` + snapshotColumns + ` FROM snapshots
		ORDER BY ` + importanceWeight + ` DESC, created_at DESC, id DESC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return collectSnapshots(rows)
}

// DeleteKeepRecent deletes a session's snapshots except the keep most
// recent by sequence. Returns the number deleted.
func DeleteKeepRecent(db *sql.DB, sessionID string, keep int) (int, error) {
	result, err := db.Exec(`
		DELETE FROM snapshots
		WHERE session_id = ?
		AND seq NOT IN (
			SELECT seq FROM snapshots WHERE session_id = ?
			ORDER BY seq DESC LIMIT ?
		)
	`, sessionID, sessionID, keep)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return rowsAffected(result)
}

// DeleteBefore deletes all snapshots with id < beforeID, store-wide.
// Returns the number deleted.
func DeleteBefore(db *sql.DB, beforeID int64) (int, error) {
	result, err := db.Exec(`DELETE FROM snapshots WHERE id < ?`, beforeID)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return rowsAffected(result)
}

// ClearSession deletes all snapshots for a session and removes the
// session row itself, atomically. Returns the number of snapshots deleted.
func ClearSession(ctx context.Context, db *sql.DB, sessionID string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	count, err := rowsAffected(result)
	if err != nil {
		return 0, err
	}

	sessionResult, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	sessionRows, err := rowsAffected(sessionResult)
	if err != nil {
		return 0, err
	}
	if sessionRows == 0 {
		return 0, errors.NewNotFound("session", sessionID)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// EnsureSession creates a session row if it does not already exist.
func EnsureSession(db *sql.DB, sessionID string, projectPath *string) error {
	_, err := db.Exec(`
		INSERT INTO sessions (session_id, project_path, started_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`, sessionID, toNullString(projectPath), time.Now().UTC().Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetSession retrieves a session by id.
func GetSession(db *sql.DB, sessionID string) (*snapshot.Session, error) {
	row := db.QueryRow(`
		SELECT session_id, project_path, started_at, last_snapshot_at
		FROM sessions WHERE session_id = ?
	`, sessionID)

	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("session", sessionID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// FindSessionByProject returns the most recently active session with the
// given project path, or nil if none exists. Sessions that have received
// snapshots sort before those that have not; started_at breaks ties.
func FindSessionByProject(db *sql.DB, projectPath string) (*snapshot.Session, error) {
	row := db.QueryRow(`
		SELECT session_id, project_path, started_at, last_snapshot_at
		FROM sessions
		WHERE project_path = ?
		ORDER BY last_snapshot_at IS NULL, last_snapshot_at DESC, started_at DESC
		LIMIT 1
	`, projectPath)

	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// ListSessions returns sessions most-recently-active first, each with
// aggregate snapshot count and token total.
func ListSessions(db *sql.DB, limit int) ([]snapshot.SessionSummary, error) {
	rows, err := db.Query(`
		SELECT s.session_id, s.project_path, s.started_at, s.last_snapshot_at,
			COUNT(sn.id), COALESCE(SUM(sn.token_estimate), 0)
		FROM sessions s
		LEFT JOIN snapshots sn ON sn.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.last_snapshot_at IS NULL, s.last_snapshot_at DESC, s.started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	summaries := make([]snapshot.SessionSummary, 0)
	for rows.Next() {
		var sum snapshot.SessionSummary
		var projectPath sql.NullString
		var lastSnapshotAt sql.NullInt64
		if err := rows.Scan(&sum.SessionID, &projectPath, &sum.StartedAt,
			&lastSnapshotAt, &sum.SnapshotCount, &sum.TotalTokens); err != nil {
			return nil, errors.NewInternal(err)
		}
		sum.ProjectPath = fromNullString(projectPath)
		sum.LastSnapshotAt = fromNullInt64(lastSnapshotAt)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return summaries, nil
}

// SessionAggregates holds per-session snapshot statistics.
type SessionAggregates struct {
	Count       int
	TotalTokens int
	FirstAt     int64
	LastAt      int64
}

// SessionStats computes aggregate statistics for a session's snapshots.
// The session must exist; a session with no snapshots yields zero values.
func SessionStats(db *sql.DB, sessionID string) (*SessionAggregates, error) {
	if _, err := GetSession(db, sessionID); err != nil {
		return nil, err
	}

	var agg SessionAggregates
	var first, last sql.NullInt64
	err := db.QueryRow(`
		SELECT COUNT(id), COALESCE(SUM(token_estimate), 0),
			MIN(created_at), MAX(created_at)
		FROM snapshots WHERE session_id = ?
	`, sessionID).Scan(&agg.Count, &agg.TotalTokens, &first, &last)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if first.Valid {
		agg.FirstAt = first.Int64
	}
	if last.Valid {
		agg.LastAt = last.Int64
	}
	return &agg, nil
}

// StoreCounts holds store-wide totals for the health check.
type StoreCounts struct {
	Sessions    int
	Snapshots   int
	TotalTokens int
}

// CountAll returns store-wide session/snapshot/token totals.
func CountAll(db *sql.DB) (*StoreCounts, error) {
	var c StoreCounts
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&c.Sessions); err != nil {
		return nil, errors.NewInternal(err)
	}
	err := db.QueryRow(`
		SELECT COUNT(id), COALESCE(SUM(token_estimate), 0) FROM snapshots
	`).Scan(&c.Snapshots, &c.TotalTokens)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &c, nil
}

// Scan helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*snapshot.Snapshot, error) {
	var s snapshot.Snapshot
	var filesJSON, decisionsJSON, nextSteps sql.NullString
	var importance string

	err := row.Scan(&s.ID, &s.SessionID, &s.Seq, &s.Summary, &s.Context,
		&filesJSON, &decisionsJSON, &nextSteps, &importance,
		&s.TokenEstimate, &s.CreatedAt)
	if err != nil {
		return nil, err
	}

	s.FilesTouched = decodeStringList(filesJSON)
	s.Decisions = decodeStringList(decisionsJSON)
	s.NextSteps = fromNullString(nextSteps)
	s.Importance = snapshot.NormalizeImportance(importance)
	return &s, nil
}

func scanSession(row rowScanner) (*snapshot.Session, error) {
	var s snapshot.Session
	var projectPath sql.NullString
	var lastSnapshotAt sql.NullInt64

	err := row.Scan(&s.SessionID, &projectPath, &s.StartedAt, &lastSnapshotAt)
	if err != nil {
		return nil, err
	}

	s.ProjectPath = fromNullString(projectPath)
	s.LastSnapshotAt = fromNullInt64(lastSnapshotAt)
	return &s, nil
}

func collectSnapshots(rows *sql.Rows) ([]snapshot.Snapshot, error) {
	snapshots := make([]snapshot.Snapshot, 0)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		snapshots = append(snapshots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return snapshots, nil
}

// decodeStringList deserializes a stored JSON string list. Malformed
// blobs yield nil rather than an error: one bad auxiliary field must not
// abort the operation that read it.
func decodeStringList(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(ns.String), &list); err != nil {
		return nil
	}
	return list
}

func toNullJSON(list []string) sql.NullString {
	if len(list) == 0 {
		return sql.NullString{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func toNullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func fromNullInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	n := ni.Int64
	return &n
}

func rowsAffected(result sql.Result) (int, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

func formatID(id int64) string {
	return "id " + strconv.FormatInt(id, 10)
}
