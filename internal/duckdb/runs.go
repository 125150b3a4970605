package duckdb

import (
	"strings"
	"time"

	"github.com/tinytelemetry/longevents/internal/model"
)

// RecordRun appends one run to the pipeline_runs history table.
func (s *Store) RecordRun(run model.RunSummary) error {
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO pipeline_runs
		(run_id, started_at, finished_at, input, records, pairs, alerts, threshold, degraded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Input,
		run.Records, run.Pairs, run.Alerts, run.Threshold, strings.Join(run.Degraded, ","),
	)
	return err
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]model.RunSummary, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT run_id, started_at, finished_at, input, records, pairs, alerts, threshold, degraded
		FROM pipeline_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		var degraded string
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.Input,
			&r.Records, &r.Pairs, &r.Alerts, &r.Threshold, &degraded); err != nil {
			return nil, err
		}
		if degraded != "" {
			r.Degraded = strings.Split(degraded, ",")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRunsBefore removes run history older than cutoff.
func (s *Store) DeleteRunsBefore(cutoff time.Time) (int64, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM pipeline_runs WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
