package backup

import "time"

// Config controls post-run DuckDB snapshots.
type Config struct {
	Enabled  bool
	LocalDir string
	KeepLast int
	Compress bool // zstd-compress the copy

	Now func() time.Time // defaults to time.Now
}

// Snapshotter is the minimal contract used by Manager: the path of a
// file-backed database that is no longer being written.
type Snapshotter interface {
	DBPath() string
}
