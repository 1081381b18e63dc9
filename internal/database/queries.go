package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"speedlog/internal/models"
)

var ErrUnexpectedRowCount = errors.New("unexpected number of rows affected")

// Insert appends the row for report and returns the number of rows affected
func (db *DB) Insert(ctx context.Context, report models.Report, at time.Time) (int64, error) {
	row, err := models.FromReport(report, at.UTC())
	if err != nil {
		return 0, err
	}

	query := `
        INSERT INTO reports ("time", ping_succeeded, metadata, avg_latency, avg_down, avg_up)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	res, err := db.ExecContext(ctx, query,
		row.Time,
		row.PingSucceeded,
		row.Metadata,
		row.AvgLatency,
		row.AvgDown,
		row.AvgUp,
	)
	if err != nil {
		return 0, fmt.Errorf("insert report: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return n, fmt.Errorf("%w: %d", ErrUnexpectedRowCount, n)
	}
	return n, nil
}

// Latest returns up to n rows, most recently inserted first
func (db *DB) Latest(ctx context.Context, n int) ([]models.StoredRow, error) {
	query := `
        SELECT "time", ping_succeeded, metadata, avg_latency, avg_down, avg_up
        FROM reports
        ORDER BY rowid DESC
        LIMIT ?
    `

	rows, err := db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.StoredRow
	for rows.Next() {
		var r models.StoredRow
		if err := rows.Scan(&r.Time, &r.PingSucceeded, &r.Metadata,
			&r.AvgLatency, &r.AvgDown, &r.AvgUp); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// Count returns the number of stored rows
func (db *DB) Count(ctx context.Context) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n)
	return n, err
}
