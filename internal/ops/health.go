package ops

import (
	"database/sql"

	"github.com/nmarks/snapvault/internal/db"
)

// HealthOutput contains the result of the HealthCheck operation.
type HealthOutput struct {
	OK            bool   `json:"ok"`
	Integrity     string `json:"integrity"`
	SessionCount  int    `json:"session_count"`
	SnapshotCount int    `json:"snapshot_count"`
	TotalTokens   int    `json:"total_tokens"`
}

// HealthCheck runs the store integrity check and reports store-wide
// totals. OK is false when the integrity check returns anything but "ok".
func HealthCheck(database *sql.DB) (*HealthOutput, error) {
	integrity, err := db.IntegrityCheck(database)
	if err != nil {
		return nil, err
	}

	counts, err := db.CountAll(database)
	if err != nil {
		return nil, err
	}

	return &HealthOutput{
		OK:            integrity == "ok",
		Integrity:     integrity,
		SessionCount:  counts.Sessions,
		SnapshotCount: counts.Snapshots,
		TotalTokens:   counts.TotalTokens,
	}, nil
}
