package duckdb

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/tinytelemetry/longevents/internal/model"
)

// Reset drops the alert table if it exists and recreates it empty.
func (s *Store) Reset() error {
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.table); err != nil {
		return fmt.Errorf("drop %s: %w", s.table, err)
	}
	create := fmt.Sprintf(`CREATE TABLE %s (
		id       VARCHAR,
		duration BIGINT,
		type     VARCHAR,
		host     VARCHAR,
		alert    BOOLEAN
	)`, s.table)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("duckdb: alert table reset", zap.String("table", s.table))
	return nil
}

// WriteBatch inserts all rows in a single transaction through one prepared
// statement. An empty batch does not touch the database.
func (s *Store) WriteBatch(rows []model.AlertRow) error {
	if len(rows) == 0 {
		return nil
	}

	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, duration, type, host, alert) VALUES (?, ?, ?, ?, ?)`, s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Duration, r.Type, r.Host, r.Alert); err != nil {
			return fmt.Errorf("row %d (id=%s): %w", i, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	s.logger.Debug("duckdb: batch written", zap.Int("rows", len(rows)))
	return nil
}

// QueryAll returns every alert row in insertion order.
func (s *Store) QueryAll() ([]model.AlertRow, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, duration, type, host, alert FROM %s ORDER BY rowid`, s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AlertRow
	for rows.Next() {
		var (
			r         model.AlertRow
			typ, host sql.NullString
			alert     sql.NullBool
		)
		if err := rows.Scan(&r.ID, &r.Duration, &typ, &host, &alert); err != nil {
			return nil, err
		}
		r.Type, r.Host, r.Alert = typ.String, host.String, alert.Bool
		out = append(out, r)
	}
	return out, rows.Err()
}
