package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const (
	defaultKeepLast = 24
	filePrefix      = "longevents-"
	fileExt         = ".duckdb"
	zstdExt         = ".zst"
)

// Manager copies the closed DuckDB file into a snapshot directory and keeps
// only the newest copies.
type Manager struct {
	store  Snapshotter
	cfg    Config
	logger *zap.Logger
}

// NewManager initializes the snapshot manager. It returns nil when snapshots
// are disabled.
func NewManager(store Snapshotter, cfg Config, logger *zap.Logger) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if store == nil {
		return nil, fmt.Errorf("backup: nil snapshotter")
	}
	if strings.TrimSpace(store.DBPath()) == "" {
		return nil, fmt.Errorf("backup: db-path is empty (in-memory store)")
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, fmt.Errorf("backup: snapshot-dir is required when snapshots are enabled")
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create snapshot-dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, cfg: cfg, logger: logger}, nil
}

// RunOnce creates one snapshot and prunes old copies. It returns the path of
// the new snapshot.
func (m *Manager) RunOnce(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fileName := filePrefix + m.cfg.Now().UTC().Format("20060102-150405.000") + fileExt
	if m.cfg.Compress {
		fileName += zstdExt
	}
	localPath := filepath.Join(m.cfg.LocalDir, fileName)

	n, err := copyFile(m.store.DBPath(), localPath, m.cfg.Compress)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	m.logger.Info("backup: created snapshot",
		zap.String("path", localPath),
		zap.Int64("bytes", n),
		zap.Bool("compressed", m.cfg.Compress),
	)

	if err := pruneLocalBackups(m.cfg.LocalDir, m.cfg.KeepLast); err != nil {
		return localPath, fmt.Errorf("prune local backups: %w", err)
	}
	return localPath, nil
}

// copyFile writes src to a temp file next to dst and renames it into place.
func copyFile(src, dst string, compress bool) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".snapshot-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	var w io.WriteCloser = tmp
	if compress {
		enc, err := zstd.NewWriter(tmp)
		if err != nil {
			tmp.Close()
			return 0, err
		}
		w = enc
	}

	n, err := io.Copy(w, in)
	if err != nil {
		w.Close()
		if compress {
			tmp.Close()
		}
		return 0, err
	}
	if compress {
		if err := w.Close(); err != nil {
			tmp.Close()
			return 0, err
		}
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, err
	}
	return n, nil
}

func pruneLocalBackups(localDir string, keepLast int) error {
	if keepLast <= 0 {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(localDir, filePrefix+"*"+fileExt+"*"))
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		// timestamp is embedded in filename and lexical sort matches chronology
		return matches[i] > matches[j]
	})

	for _, oldPath := range matches[keepLast:] {
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
