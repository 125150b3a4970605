// Package postgres implements the alert sink on PostgreSQL. Batches are
// written with COPY inside a single transaction.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/tinytelemetry/longevents/internal/migrate"
	"github.com/tinytelemetry/longevents/internal/model"
)

var alertColumns = []string{"id", "duration", "type", "host", "alert"}

// Store is the PostgreSQL-backed alert sink.
type Store struct {
	pool         *pgxpool.Pool
	db           *sql.DB // database/sql view of pool, used for migrations
	table        string
	logger       *zap.Logger
	QueryTimeout time.Duration

	shutdownOnce sync.Once
}

// NewStore connects to databaseURL and applies the run-history migrations.
func NewStore(ctx context.Context, databaseURL string, queryTimeout ...time.Duration) (*Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("postgres: database url is empty")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := migrate.NewRunner(db, migrate.Postgres).Run(); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	qt := 30 * time.Second
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}
	return &Store{
		pool:         pool,
		db:           db,
		table:        model.DefaultTable,
		logger:       zap.NewNop(),
		QueryTimeout: qt,
	}, nil
}

// SetLogger replaces the store's logger.
func (s *Store) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// Reset drops the alert table if it exists and recreates it empty.
func (s *Store) Reset() error {
	ctx, cancel := s.queryCtx()
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ident := pgx.Identifier{s.table}.Sanitize()
	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident); err != nil {
		return fmt.Errorf("drop %s: %w", s.table, err)
	}
	if _, err := tx.Exec(ctx, `CREATE TABLE `+ident+` (
		id       TEXT,
		duration BIGINT,
		type     TEXT,
		host     TEXT,
		alert    BOOLEAN
	)`); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.logger.Info("postgres: alert table reset", zap.String("table", s.table))
	return nil
}

// WriteBatch copies all rows in one transaction. An empty batch is a no-op.
func (s *Store) WriteBatch(rows []model.AlertRow) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := s.queryCtx()
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	n, err := tx.CopyFrom(ctx, pgx.Identifier{s.table}, alertColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.ID, r.Duration, r.Type, r.Host, r.Alert}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", s.table, err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", s.table, n, len(rows))
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.logger.Debug("postgres: batch written", zap.Int("rows", len(rows)))
	return nil
}

// QueryAll returns every alert row ordered by id then duration.
func (s *Store) QueryAll() ([]model.AlertRow, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT id, duration, COALESCE(type, ''), COALESCE(host, ''), COALESCE(alert, false)
		FROM `+pgx.Identifier{s.table}.Sanitize()+` ORDER BY id, duration`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AlertRow, error) {
		var r model.AlertRow
		err := row.Scan(&r.ID, &r.Duration, &r.Type, &r.Host, &r.Alert)
		return r, err
	})
}

// RecordRun appends one run to the pipeline_runs history table.
func (s *Store) RecordRun(run model.RunSummary) error {
	ctx, cancel := s.queryCtx()
	defer cancel()

	_, err := s.pool.Exec(ctx, `INSERT INTO pipeline_runs
		(run_id, started_at, finished_at, input, records, pairs, alerts, threshold, degraded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.RunID, run.StartedAt, run.FinishedAt, run.Input,
		run.Records, run.Pairs, run.Alerts, run.Threshold, strings.Join(run.Degraded, ","),
	)
	return err
}

// DeleteRunsBefore removes run history older than cutoff.
func (s *Store) DeleteRunsBefore(cutoff time.Time) (int64, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM pipeline_runs WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Shutdown closes the database/sql handle and the pool. It is idempotent.
func (s *Store) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.db.Close()
		s.pool.Close()
	})
	return err
}
