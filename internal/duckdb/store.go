package duckdb

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/tinytelemetry/longevents/internal/migrate"
	"github.com/tinytelemetry/longevents/internal/model"
)

// Store is the DuckDB-backed alert sink. Writes take the write lock and reads
// the read lock, so a batch write and a read-back never overlap.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	table        string
	logger       *zap.Logger
	QueryTimeout time.Duration

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewStore opens or creates a DuckDB database and applies the run-history migrations.
// If dbPath is empty, an in-memory database is used.
// An optional queryTimeout can be passed; it defaults to 30s.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate.NewRunner(db, migrate.DuckDB).Run(); err != nil {
		db.Close()
		return nil, err
	}

	qt := 30 * time.Second
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	return &Store{
		db:           db,
		dbPath:       dbPath,
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

// DBPath returns the configured DuckDB path. Empty means in-memory DB.
func (s *Store) DBPath() string {
	return s.dbPath
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// Shutdown checkpoints a file-backed database and closes the connection.
// Only the first call does any work; later calls return the first result.
func (s *Store) Shutdown() error {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.dbPath != "" {
			if _, err := s.db.Exec("CHECKPOINT"); err != nil {
				s.logger.Warn("duckdb: checkpoint before close failed", zap.Error(err))
			}
		}
		s.shutdownErr = s.db.Close()
	})
	return s.shutdownErr
}

// Close is an alias for Shutdown.
func (s *Store) Close() error {
	return s.Shutdown()
}
