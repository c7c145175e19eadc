package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/nmarks/snapvault/internal/config"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the SQLite database at baseDir/snapvault.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.snapvault.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all
	// connections). busy_timeout gives writers a bounded wait when another
	// process holds the write lock instead of failing immediately.
	dbPath := filepath.Join(baseDir, "snapvault.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init if you need to tune pool behavior for contention.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS sessions (
		  session_id       TEXT PRIMARY KEY,
		  project_path     TEXT,
		  started_at       INTEGER NOT NULL,
		  last_snapshot_at INTEGER
		);

		CREATE TABLE IF NOT EXISTS snapshots (
		  id             INTEGER PRIMARY KEY AUTOINCREMENT,
		  session_id     TEXT NOT NULL REFERENCES sessions(session_id),
		  seq            INTEGER NOT NULL,
		  summary        TEXT NOT NULL,
		  context        TEXT NOT NULL,
		  files_json     TEXT,
		  decisions_json TEXT,
		  next_steps     TEXT,
		  importance     TEXT NOT NULL DEFAULT 'normal',
		  token_estimate INTEGER NOT NULL,
		  created_at     INTEGER NOT NULL,
		  UNIQUE (session_id, seq)
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_session_seq
		ON snapshots(session_id, seq DESC);

		CREATE INDEX IF NOT EXISTS idx_snapshots_created
		ON snapshots(created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_sessions_project
		ON sessions(project_path)
		WHERE project_path IS NOT NULL;
		`

		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration to v1 failed: %w", err)
		}

		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// GetUserVersion reads the SQLite user_version pragma.
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion writes the SQLite user_version pragma.
func SetUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// verifyWALMode confirms the journal_mode pragma took effect.
func verifyWALMode(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("expected WAL journal mode, got %q", mode)
	}
	return nil
}

// IntegrityCheck runs PRAGMA integrity_check and returns its result string.
// "ok" means the store passed.
func IntegrityCheck(db *sql.DB) (string, error) {
	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return "", fmt.Errorf("integrity check failed to run: %w", err)
	}
	return result, nil
}
