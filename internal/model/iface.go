package model

import "context"

// RecordSource yields one bounded, ordered batch of records.
type RecordSource interface {
	Name() string
	Records(ctx context.Context) ([]Record, error)
}

// AlertWriter provides the write side of an alert sink.
type AlertWriter interface {
	// Reset drops the alert table if it exists and creates it empty.
	Reset() error
	// WriteBatch applies all rows in one statement/transaction. Empty rows is a no-op.
	WriteBatch(rows []AlertRow) error
}

// AlertReader provides the read-back side of an alert sink.
type AlertReader interface {
	QueryAll() ([]AlertRow, error)
}

// AlertSink is the persistence contract the pipeline drives.
type AlertSink interface {
	AlertWriter
	AlertReader
	// Shutdown releases the sink's resources. It is idempotent.
	Shutdown() error
}

// RunRecorder is implemented by sinks that keep a run history.
type RunRecorder interface {
	RecordRun(run RunSummary) error
}
