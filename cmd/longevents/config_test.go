package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/tinytelemetry/longevents/internal/pipeline"
	"github.com/tinytelemetry/longevents/internal/recordsource"
	"github.com/tinytelemetry/longevents/internal/report"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, int64(4), cfg.Threshold)
	assert.Equal(t, pipeline.IngestContinue, cfg.ingestPolicy)
	assert.Equal(t, sinkDuckDB, cfg.Sink)
	assert.Equal(t, filepath.Join(home, ".local", "share", "longevents", "longevents.duckdb"), cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, report.FormatTable, cfg.outputFormat)
	assert.Equal(t, zapcore.InfoLevel, cfg.logLevel)
	assert.Equal(t, 30, cfg.RunRetention)
	assert.Equal(t, time.Hour, cfg.CloudWatchLookback)
	assert.Empty(t, cfg.ConfigPath)
}

func TestLoadConfig_File(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
threshold: 0
ingest-policy: fail
output-format: yaml
log-level: debug
db-path: ~/data/events.duckdb
snapshot-dir: ~/snaps
snapshot-compress: true
cloudwatch-record-path: detail
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Zero(t, cfg.Threshold)
	assert.Equal(t, pipeline.IngestFail, cfg.ingestPolicy)
	assert.Equal(t, report.FormatYAML, cfg.outputFormat)
	assert.Equal(t, zapcore.DebugLevel, cfg.logLevel)
	assert.Equal(t, filepath.Join(home, "data", "events.duckdb"), cfg.DBPath)
	assert.Equal(t, filepath.Join(home, "snaps"), cfg.SnapshotDir)
	assert.True(t, cfg.SnapshotCompress)
	assert.Equal(t, "detail", cfg.CloudWatchRecordPath)
	assert.Equal(t, path, cfg.ConfigPath)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LONGEVENTS_THRESHOLD", "9")
	t.Setenv("LONGEVENTS_OUTPUT_FORMAT", "json")

	cfg, err := loadConfig(writeConfig(t, "threshold: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), cfg.Threshold)
	assert.Equal(t, report.FormatJSON, cfg.outputFormat)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cases := map[string]string{
		"policy":          "ingest-policy: retry\n",
		"format":          "output-format: csv\n",
		"level":           "log-level: loud\n",
		"log format":      "log-format: xml\n",
		"sink":            "sink: sqlite\n",
		"postgres no url": "sink: postgres\n",
		"workers":         "workers: -1\n",
		"snapshot keep":   "snapshot-keep: -2\n",
		"retention":       "run-retention: -1\n",
		"timeout":         "query-timeout: 0s\n",
	}
	for name, body := range cases {
		_, err := loadConfig(writeConfig(t, body))
		assert.Error(t, err, name)
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := loadConfig(writeConfig(t, "threshold: [\n"))
	assert.Error(t, err)
}

func TestOpenSource_Targets(t *testing.T) {
	cfg := appConfig{}

	src, err := openSource(t.Context(), cfg, recordsource.Resolve("", ""), nil)
	require.NoError(t, err)
	assert.Equal(t, "builtin:defaultdata/events.json", src.Name())

	src, err = openSource(t.Context(), cfg, recordsource.Resolve("events.json.zst", ""), nil)
	require.NoError(t, err)
	assert.Equal(t, "events.json.zst", src.Name())
}

func TestOpenSink_DuckDBInMemory(t *testing.T) {
	sink, err := openSink(t.Context(), appConfig{Sink: sinkDuckDB, QueryTimeout: time.Second}, nil)
	require.NoError(t, err)
	require.NoError(t, sink.Shutdown())
}

func TestOpenSink_ConnectFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := openSink(t.Context(), appConfig{Sink: sinkDuckDB, DBPath: filepath.Join(blocker, "db.duckdb"), QueryTimeout: time.Second}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrSinkConnect)
}
