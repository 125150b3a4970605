package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedInput reports bytes between records that cannot start an object.
var ErrMalformedInput = errors.New("ingest: malformed record stream")

// ErrObjectTooLarge reports an object exceeding the configured size cap.
var ErrObjectTooLarge = errors.New("ingest: record object too large")

// objectSplitter cuts a byte stream into top-level JSON-like objects.
// Objects may span lines or share a line; commas, brackets and whitespace
// between objects are skipped so both NDJSON and a top-level array work.
type objectSplitter struct {
	r       *bufio.Reader
	maxSize int
	offset  int64
}

func newObjectSplitter(r io.Reader, maxSize int) *objectSplitter {
	return &objectSplitter{r: bufio.NewReaderSize(r, 64*1024), maxSize: maxSize}
}

// next returns the next complete object, or io.EOF when the stream is done.
func (s *objectSplitter) next() ([]byte, error) {
	var st depthState
	var buf []byte

	for {
		b, err := s.r.ReadByte()
		if err == io.EOF {
			if len(buf) > 0 {
				return nil, fmt.Errorf("%w: truncated object at offset %d", ErrMalformedInput, s.offset)
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		s.offset++

		if len(buf) == 0 {
			switch b {
			case '{':
			case ' ', '\t', '\r', '\n', ',', '[', ']':
				continue
			case 0xEF, 0xBB, 0xBF: // UTF-8 BOM, only at the start of the stream
				if s.offset <= 3 {
					continue
				}
				return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrMalformedInput, b, s.offset)
			default:
				return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrMalformedInput, b, s.offset)
			}
		}

		buf = append(buf, b)
		if len(buf) > s.maxSize {
			return nil, fmt.Errorf("%w: over %d bytes at offset %d", ErrObjectTooLarge, s.maxSize, s.offset)
		}
		if st.feed(b) == 0 {
			return buf, nil
		}
	}
}

// depthState tracks brace nesting, ignoring braces inside quoted strings.
// Single quotes are honored too so lenient input with 'strings' splits correctly.
type depthState struct {
	depth   int
	quote   byte
	escaped bool
}

func (d *depthState) feed(b byte) int {
	if d.escaped {
		d.escaped = false
		return d.depth
	}
	if d.quote != 0 {
		switch b {
		case '\\':
			d.escaped = true
		case d.quote:
			d.quote = 0
		}
		return d.depth
	}
	switch b {
	case '"', '\'':
		d.quote = b
	case '{':
		d.depth++
	case '}':
		d.depth--
	}
	return d.depth
}

// CountJSONDepth counts the net change in brace nesting depth for a line.
func CountJSONDepth(line string) int {
	var st depthState
	for i := 0; i < len(line); i++ {
		st.feed(line[i])
	}
	return st.depth
}
