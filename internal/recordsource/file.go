package recordsource

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/tinytelemetry/longevents/internal/ingest"
	"github.com/tinytelemetry/longevents/internal/model"
)

//go:embed defaultdata/events.json
var defaultData embed.FS

const builtinName = "builtin:defaultdata/events.json"

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic = []byte{0x1F, 0x8B}
)

// FileSource reads records from a file. Compressed files are detected by
// their magic bytes, not their extension.
type FileSource struct {
	name    string
	open    func() (io.ReadCloser, error)
	decoder *ingest.Decoder
	logger  *zap.Logger
}

// NewFileSource creates a source reading path.
func NewFileSource(path string, decoder *ingest.Decoder, logger *zap.Logger) *FileSource {
	return &FileSource{
		name:    path,
		open:    func() (io.ReadCloser, error) { return os.Open(path) },
		decoder: decoder,
		logger:  orNop(logger),
	}
}

// NewBuiltinSource creates a source over the sample dataset compiled into the binary.
func NewBuiltinSource(decoder *ingest.Decoder, logger *zap.Logger) *FileSource {
	return &FileSource{
		name:    builtinName,
		open:    func() (io.ReadCloser, error) { return defaultData.Open("defaultdata/events.json") },
		decoder: decoder,
		logger:  orNop(logger),
	}
}

func (s *FileSource) Name() string { return s.name }

// Records reads and decodes the whole file.
func (s *FileSource) Records(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.name, err)
	}
	defer f.Close()

	r, closeFn, err := decompress(f)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", s.name, err)
	}
	defer closeFn()

	records, stats, err := s.decoder.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.name, err)
	}
	s.logger.Info("recordsource: file loaded",
		zap.String("path", s.name),
		zap.Int("objects", stats.Objects),
		zap.Int("records", stats.Records),
		zap.Int("lenient", stats.Lenient),
		zap.Int("skipped", stats.Skipped),
	)
	return records, nil
}

// decompress wraps r in a gzip or zstd reader when its magic bytes match.
func decompress(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(len(zstdMagic))

	switch {
	case bytes.HasPrefix(magic, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	case bytes.HasPrefix(magic, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return gz, func() { _ = gz.Close() }, nil
	default:
		return br, func() {}, nil
	}
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
