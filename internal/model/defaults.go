package model

// Shared defaults used by the pipeline, the sinks and the CLI binaries.
const (
	// DefaultThreshold is the alert threshold in milliseconds. Pairs must
	// exceed it strictly to alert.
	DefaultThreshold int64 = 4

	// DefaultTable is the alert table both sinks reset and write into.
	DefaultTable = "long_events"
)
