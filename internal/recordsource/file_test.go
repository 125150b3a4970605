package recordsource

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/longevents/internal/ingest"
)

const sample = `{"id":"id1","state":"STARTED","timestamp":100}
{"id":"id1","state":"FINISHED","type":"t","host":"h","timestamp":110}
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestFileSource_Plain(t *testing.T) {
	src := NewFileSource(writeFile(t, "events.json", []byte(sample)), ingest.NewDecoder(nil), nil)

	records, err := src.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(110), records[1].Timestamp)
}

func TestFileSource_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	// extension is irrelevant; detection is by magic bytes
	src := NewFileSource(writeFile(t, "events.json", buf.Bytes()), ingest.NewDecoder(nil), nil)
	records, err := src.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFileSource_Zstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	data := enc.EncodeAll([]byte(sample), nil)
	require.NoError(t, enc.Close())

	src := NewFileSource(writeFile(t, "events.json.zst", data), ingest.NewDecoder(nil), nil)
	records, err := src.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFileSource_Missing(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "nope.json"), ingest.NewDecoder(nil), nil)
	_, err := src.Records(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewFileSource(writeFile(t, "events.json", []byte(sample)), ingest.NewDecoder(nil), nil)
	_, err := src.Records(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuiltinSource(t *testing.T) {
	src := NewBuiltinSource(ingest.NewDecoder(nil), nil)
	assert.Equal(t, builtinName, src.Name())

	records, err := src.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 8)
}
