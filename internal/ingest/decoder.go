// Package ingest decodes lifecycle records from JSON-like byte streams.
//
// Objects are parsed strictly first. Objects that fail strict parsing are
// retried with bare keys quoted ({id:"a"}) and finally as a YAML flow mapping,
// so hand-written input with unquoted field names is accepted.
package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/tinytelemetry/longevents/internal/model"
)

// DefaultMaxObjectSize is the default cap on a single record object (1MB).
const DefaultMaxObjectSize = 1024 * 1024

// DecoderConfig holds tunable parameters for the decoder.
type DecoderConfig struct {
	MaxObjectSize int
}

// Stats summarizes one Decode call.
type Stats struct {
	Objects int // objects found in the stream
	Records int // objects accepted as records
	Lenient int // objects that needed the lenient fallback
	Skipped int // objects rejected by record validation
}

// Decoder turns a byte stream into records. It is safe for concurrent use.
type Decoder struct {
	parsers       fastjson.ParserPool
	maxObjectSize int
	logger        *zap.Logger
}

// NewDecoder creates a decoder. A nil logger discards output.
func NewDecoder(logger *zap.Logger, conf ...DecoderConfig) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxSize := DefaultMaxObjectSize
	if len(conf) > 0 && conf[0].MaxObjectSize > 0 {
		maxSize = conf[0].MaxObjectSize
	}
	return &Decoder{maxObjectSize: maxSize, logger: logger}
}

// Decode reads every object in r. Syntax errors abort the whole read; objects
// that parse but are not valid records are skipped and counted.
func (d *Decoder) Decode(r io.Reader) ([]model.Record, Stats, error) {
	var stats Stats
	var records []model.Record

	split := newObjectSplitter(r, d.maxObjectSize)
	for {
		obj, err := split.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, err
		}
		stats.Objects++

		rec, lenient, err := d.DecodeObject(obj)
		if lenient {
			stats.Lenient++
		}
		switch {
		case errors.Is(err, ErrMissingID), errors.Is(err, ErrMissingTimestamp), errors.Is(err, ErrInvalidTimestamp):
			stats.Skipped++
			d.logger.Warn("ingest: skipping record", zap.Int("object", stats.Objects), zap.Error(err))
			continue
		case err != nil:
			return nil, stats, fmt.Errorf("object %d: %w", stats.Objects, err)
		}

		d.logger.Debug("ingest: record", zap.Stringer("record", rec))
		records = append(records, rec)
		stats.Records++
	}
	return records, stats, nil
}

// DecodeObject parses a single object. lenient reports whether a fallback
// parse was needed.
func (d *Decoder) DecodeObject(obj []byte) (rec model.Record, lenient bool, err error) {
	p := d.parsers.Get()
	defer d.parsers.Put(p)

	v, strictErr := p.ParseBytes(obj)
	if strictErr == nil {
		rec, err = recordFromValue(v)
		return rec, false, err
	}

	src := obj
	if quoted, changed := quoteBareKeys(obj); changed {
		if v, err := p.ParseBytes(quoted); err == nil {
			rec, err = recordFromValue(v)
			return rec, true, err
		}
		src = quoted
	}

	normalized, yerr := yamlToJSON(src)
	if yerr != nil {
		return model.Record{}, false, fmt.Errorf("parse: %w", strictErr)
	}
	v, err = p.ParseBytes(normalized)
	if err != nil {
		return model.Record{}, false, fmt.Errorf("parse: %w", err)
	}
	rec, err = recordFromValue(v)
	return rec, true, err
}
