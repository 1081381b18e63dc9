package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps sql.DB with the report table operations
type DB struct {
	*sql.DB
}

// New opens the SQLite store at path
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("database open failed: %w", err)
	}

	// One writer at a time; runs never overlap
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	// modernc.org/sqlite requires explicit PRAGMAs (not query-string params)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &DB{db}, nil
}

// EnsureSchema creates the reports table if it does not exist yet
func (db *DB) EnsureSchema(ctx context.Context) error {
	schema := `
    CREATE TABLE IF NOT EXISTS reports (
        "time" TIMESTAMP NOT NULL,
        ping_succeeded BOOLEAN NOT NULL,
        metadata TEXT NOT NULL,
        avg_latency REAL NOT NULL,
        avg_down REAL NOT NULL,
        avg_up REAL NOT NULL
    );
    `

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}

	return nil
}
