package duckdb

import (
	"time"

	"go.uber.org/zap"
)

// RunHistoryPruner is the part of a sink that can expire run history.
type RunHistoryPruner interface {
	DeleteRunsBefore(cutoff time.Time) (int64, error)
}

// RetentionConfig holds configuration for run-history retention.
type RetentionConfig struct {
	RetentionDays int
	Now           func() time.Time // defaults to time.Now
}

// PruneRunHistory deletes runs older than the retention period once.
// It is a no-op when retention is 0 (disabled).
func PruneRunHistory(store RunHistoryPruner, logger *zap.Logger, conf RetentionConfig) (int64, error) {
	if conf.RetentionDays <= 0 {
		return 0, nil
	}
	now := time.Now
	if conf.Now != nil {
		now = conf.Now
	}
	cutoff := now().Add(-time.Duration(conf.RetentionDays) * 24 * time.Hour)

	rows, err := store.DeleteRunsBefore(cutoff)
	if err != nil {
		return 0, err
	}
	if rows > 0 && logger != nil {
		logger.Info("run history retention cleanup",
			zap.Int64("deleted", rows),
			zap.Int("retention_days", conf.RetentionDays),
		)
	}
	return rows, nil
}
