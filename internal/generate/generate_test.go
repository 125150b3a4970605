package generate

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/longevents/internal/alert"
	"github.com/tinytelemetry/longevents/internal/correlate"
	"github.com/tinytelemetry/longevents/internal/ingest"
	"github.com/tinytelemetry/longevents/internal/model"
	"github.com/tinytelemetry/longevents/internal/recordsource"
)

func TestWrite_RecordsDecode(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Pairs: 50, Seed: 7, Base: 1491377495212}
	sum, err := Write(&buf, cfg)
	require.NoError(t, err)
	assert.Equal(t, 100, sum.Records)
	assert.LessOrEqual(t, sum.MaxDuration, int64(DefaultMaxDuration))

	records, stats, err := ingest.NewDecoder(nil).Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 100, stats.Records)
	require.Len(t, records, 100)

	assert.Equal(t, model.Record{ID: "id0", State: model.StateStarted, Host: "host0", Type: "type0", Timestamp: 1491377495212}, records[0])
	assert.Equal(t, model.StateFinished, records[1].State)

	pairs := correlate.New().Correlate(records).Pairs()
	require.Len(t, pairs, 50)
	for _, p := range pairs {
		assert.GreaterOrEqual(t, p.Duration, int64(1))
		assert.LessOrEqual(t, p.Duration, int64(DefaultMaxDuration))
	}
	assert.Len(t, alert.Classify(pairs, model.DefaultThreshold), LongerThan(cfg, model.DefaultThreshold))
}

func TestWrite_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	cfg := Config{Pairs: 20, Seed: 42, Base: 1000}
	_, err := Write(&a, cfg)
	require.NoError(t, err)
	_, err = Write(&b, cfg)
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())
}

func TestWrite_MaxDuration(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Pairs: 200, Seed: 1, Base: 1000, MaxDuration: 1}
	_, err := Write(&buf, cfg)
	require.NoError(t, err)
	assert.Zero(t, LongerThan(cfg, 1))
	assert.Equal(t, 200, LongerThan(cfg, 0))
}

func TestWrite_NegativePairs(t *testing.T) {
	_, err := Write(&bytes.Buffer{}, Config{Pairs: -1})
	assert.Error(t, err)
}

func TestWriteFile_Compression(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Pairs: 30, Seed: 3, Base: 5000}

	for _, name := range []string{"plain.json", "data.json.gz", "data.json.zst"} {
		path := filepath.Join(dir, name)
		sum, err := WriteFile(path, cfg)
		require.NoError(t, err, name)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, info.Size(), sum.Bytes, name)

		records, err := recordsource.NewFileSource(path, ingest.NewDecoder(nil), nil).Records(t.Context())
		require.NoError(t, err, name)
		assert.Len(t, records, 60, name)
	}
}

func TestReadableSize(t *testing.T) {
	cases := map[int64]string{
		0:                "0",
		1:                "1 B",
		1023:             "1,023 B",
		1024:             "1 kB",
		1536:             "1.5 kB",
		10 * 1024 * 1024: "10 MB",
		3 << 30:          "3 GB",
	}
	for in, want := range cases {
		assert.Equal(t, want, ReadableSize(in), "size %d", in)
	}
}
