package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// UsageRecorder is the analytics sink contract: attribution only, never
// message content. Implementations must be safe for concurrent use.
type UsageRecorder interface {
	Record(ctx context.Context, principalID string, inputLen, outputLen int, modelName string) error
}

// Analytics records usage events in a local sqlite database.
type Analytics struct {
	db *sql.DB
}

// OpenAnalytics opens (or creates) the usage database at path.
func OpenAnalytics(path string) (*Analytics, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics database: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS usage_event (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			principal_id TEXT NOT NULL,
			input_len    INTEGER NOT NULL,
			output_len   INTEGER NOT NULL,
			model        TEXT NOT NULL DEFAULT '',
			created_ts   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_usage_event_principal ON usage_event (principal_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create analytics schema: %w", err)
	}

	return &Analytics{db: db}, nil
}

// Record stores one usage event. It is called only after a successful
// upstream call; failures here are the caller's to swallow.
func (a *Analytics) Record(ctx context.Context, principalID string, inputLen, outputLen int, modelName string) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO usage_event (principal_id, input_len, output_len, model, created_ts) VALUES (?, ?, ?, ?, ?)`,
		principalID, inputLen, outputLen, modelName, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record usage event: %w", err)
	}
	return nil
}

// CountEvents returns the number of recorded events for a principal.
func (a *Analytics) CountEvents(ctx context.Context, principalID string) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM usage_event WHERE principal_id = ?`, principalID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage events: %w", err)
	}
	return count, nil
}

// Close releases the database handle.
func (a *Analytics) Close() error {
	return a.db.Close()
}
