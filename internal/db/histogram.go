package db

import (
	"context"
	"fmt"

	"github.com/j-veylop/idlesim/internal/metric"
	"github.com/j-veylop/idlesim/internal/week"
)

// row is one buffered histogram observation.
type row struct {
	run       int
	hour      int
	computer  string
	timestamp float64
	value     float64
}

// Histogram buffers the observations of one metric and flushes them to the
// database in batches.
type Histogram struct {
	db        *DB
	metric    metric.Metric
	cacheSize int
	cache     []row
}

// NewHistogram creates a buffered histogram for one metric. The buffer is
// flushed whenever it reaches cacheSize rows, or explicitly via Flush.
func (db *DB) NewHistogram(m metric.Metric, cacheSize int) *Histogram {
	if cacheSize < 1 {
		cacheSize = 1
	}
	return &Histogram{
		db:        db,
		metric:    m,
		cacheSize: cacheSize,
		cache:     make([]row, 0, cacheSize),
	}
}

// Metric returns the metric this histogram records.
func (h *Histogram) Metric() metric.Metric {
	return h.metric
}

// Append buffers one observation. The hour-of-week bucket is derived from
// the timestamp.
func (h *Histogram) Append(run int, timestamp float64, computer string, value float64) error {
	h.cache = append(h.cache, row{
		run:       run,
		hour:      week.HourOfWeek(timestamp),
		computer:  computer,
		timestamp: timestamp,
		value:     value,
	})
	if len(h.cache) >= h.cacheSize {
		return h.Flush()
	}
	return nil
}

// Flush writes the buffered observations in one transaction.
func (h *Histogram) Flush() error {
	if len(h.cache) == 0 {
		return nil
	}

	ctx := context.Background()
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin histogram transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO histogram (run, hour, metric, computer, timestamp, value)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare histogram insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range h.cache {
		if _, err := stmt.ExecContext(ctx,
			r.run, r.hour, string(h.metric), r.computer, r.timestamp, r.value); err != nil {
			return fmt.Errorf("failed to insert histogram row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit histogram rows: %w", err)
	}
	h.cache = h.cache[:0]
	return nil
}

// Sum totals the flushed values of one run, for one computer or for the
// whole fleet when computer is empty.
func (h *Histogram) Sum(run int, computer string) (float64, error) {
	query := `SELECT COALESCE(SUM(value), 0) FROM histogram WHERE metric = ? AND run = ?`
	args := []any{string(h.metric), run}
	if computer != "" {
		query += ` AND computer = ?`
		args = append(args, computer)
	}

	var sum float64
	if err := h.db.QueryRowContext(context.Background(), query, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum histogram: %w", err)
	}
	return sum, nil
}

// Count returns the number of flushed observations of one run, for one
// computer or for the whole fleet when computer is empty.
func (h *Histogram) Count(run int, computer string) (int, error) {
	query := `SELECT COUNT(*) FROM histogram WHERE metric = ? AND run = ?`
	args := []any{string(h.metric), run}
	if computer != "" {
		query += ` AND computer = ?`
		args = append(args, computer)
	}

	var count int
	if err := h.db.QueryRowContext(context.Background(), query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count histogram: %w", err)
	}
	return count, nil
}

// Values returns the flushed values of one run, for one computer or for
// the whole fleet when computer is empty.
func (h *Histogram) Values(run int, computer string) ([]float64, error) {
	query := `SELECT value FROM histogram WHERE metric = ? AND run = ?`
	args := []any{string(h.metric), run}
	if computer != "" {
		query += ` AND computer = ?`
		args = append(args, computer)
	}

	rows, err := h.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query histogram values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan histogram value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read histogram values: %w", err)
	}
	return values, nil
}

// HourlyValues buckets the flushed values of one run by hour of week.
func (h *Histogram) HourlyValues(run int) ([week.Hours][]float64, error) {
	var buckets [week.Hours][]float64

	rows, err := h.db.QueryContext(context.Background(),
		`SELECT hour, value FROM histogram WHERE metric = ? AND run = ?`,
		string(h.metric), run)
	if err != nil {
		return buckets, fmt.Errorf("failed to query hourly values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var hour int
		var v float64
		if err := rows.Scan(&hour, &v); err != nil {
			return buckets, fmt.Errorf("failed to scan hourly value: %w", err)
		}
		if hour < 0 || hour >= week.Hours {
			continue
		}
		buckets[hour] = append(buckets[hour], v)
	}
	if err := rows.Err(); err != nil {
		return buckets, fmt.Errorf("failed to read hourly values: %w", err)
	}
	return buckets, nil
}

// HourlyCounts counts the flushed observations of one run by hour of week.
func (h *Histogram) HourlyCounts(run int) ([week.Hours]int, error) {
	var counts [week.Hours]int

	rows, err := h.db.QueryContext(context.Background(),
		`SELECT hour, COUNT(*) FROM histogram WHERE metric = ? AND run = ? GROUP BY hour`,
		string(h.metric), run)
	if err != nil {
		return counts, fmt.Errorf("failed to query hourly counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var hour, n int
		if err := rows.Scan(&hour, &n); err != nil {
			return counts, fmt.Errorf("failed to scan hourly count: %w", err)
		}
		if hour < 0 || hour >= week.Hours {
			continue
		}
		counts[hour] = n
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("failed to read hourly counts: %w", err)
	}
	return counts, nil
}
