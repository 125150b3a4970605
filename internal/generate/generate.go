// Package generate writes synthetic STARTED/FINISHED record files for load
// and end-to-end testing.
package generate

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/valyala/fastjson"

	"github.com/tinytelemetry/longevents/internal/model"
)

const DefaultMaxDuration = 9

// Config controls the generated data.
type Config struct {
	Pairs       int
	MaxDuration int64 // finish - start is drawn from [1, MaxDuration]
	Seed        uint64
	Base        int64 // STARTED timestamp in unix ms; 0 means now
}

// Summary describes what was written.
type Summary struct {
	Records     int
	Bytes       int64 // on-disk size, set by WriteFile
	MaxDuration int64 // longest duration actually drawn
}

// LongerThan returns the number of generated pairs whose duration exceeds
// threshold, given the durations drawn. It is only meaningful together with
// the same Config.
func LongerThan(cfg Config, threshold int64) int {
	cfg = withDefaults(cfg)
	rng := newRand(cfg.Seed)
	n := 0
	for i := 0; i < cfg.Pairs; i++ {
		if drawDuration(rng, cfg.MaxDuration) > threshold {
			n++
		}
	}
	return n
}

func withDefaults(cfg Config) Config {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.Base == 0 {
		cfg.Base = time.Now().UnixMilli()
	}
	return cfg
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func drawDuration(rng *rand.Rand, max int64) int64 {
	return rng.Int64N(max) + 1
}

// Write emits cfg.Pairs STARTED/FINISHED pairs to w as newline-delimited
// JSON objects.
func Write(w io.Writer, cfg Config) (Summary, error) {
	if cfg.Pairs < 0 {
		return Summary{}, fmt.Errorf("generate: negative pair count %d", cfg.Pairs)
	}
	cfg = withDefaults(cfg)
	rng := newRand(cfg.Seed)
	bw := bufio.NewWriter(w)

	var (
		arena fastjson.Arena
		buf   []byte
		sum   Summary
	)
	emit := func(i int, state model.State, ts int64) error {
		suffix := strconv.Itoa(i)
		obj := arena.NewObject()
		obj.Set("id", arena.NewString("id"+suffix))
		obj.Set("state", arena.NewString(string(state)))
		obj.Set("host", arena.NewString("host"+suffix))
		obj.Set("type", arena.NewString("type"+suffix))
		obj.Set("timestamp", arena.NewNumberString(strconv.FormatInt(ts, 10)))

		buf = obj.MarshalTo(buf[:0])
		buf = append(buf, '\n')
		arena.Reset()
		if _, err := bw.Write(buf); err != nil {
			return err
		}
		sum.Records++
		return nil
	}

	for i := 0; i < cfg.Pairs; i++ {
		d := drawDuration(rng, cfg.MaxDuration)
		sum.MaxDuration = max(sum.MaxDuration, d)
		if err := emit(i, model.StateStarted, cfg.Base); err != nil {
			return sum, fmt.Errorf("generate: write: %w", err)
		}
		if err := emit(i, model.StateFinished, cfg.Base+d); err != nil {
			return sum, fmt.Errorf("generate: write: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return sum, fmt.Errorf("generate: flush: %w", err)
	}
	return sum, nil
}

// WriteFile writes to path, compressing when it ends in .zst or .gz.
func WriteFile(path string, cfg Config) (Summary, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Summary{}, fmt.Errorf("generate: create dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return Summary{}, fmt.Errorf("generate: %w", err)
	}
	defer f.Close()

	var (
		w   io.Writer = f
		enc io.WriteCloser
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		zw, err := zstd.NewWriter(f)
		if err != nil {
			return Summary{}, fmt.Errorf("generate: zstd: %w", err)
		}
		w, enc = zw, zw
	case ".gz":
		gw := gzip.NewWriter(f)
		w, enc = gw, gw
	}

	sum, err := Write(w, cfg)
	if err != nil {
		return sum, err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return sum, fmt.Errorf("generate: close encoder: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return sum, fmt.Errorf("generate: close: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return sum, fmt.Errorf("generate: stat: %w", err)
	}
	sum.Bytes = info.Size()
	return sum, nil
}

var sizeUnits = []string{"B", "kB", "MB", "GB", "TB"}

// ReadableSize formats n bytes in 1024-based units with at most one decimal,
// e.g. "1,023 B", "1.5 kB".
func ReadableSize(n int64) string {
	if n <= 0 {
		return "0"
	}
	group := 0
	for group < len(sizeUnits)-1 && n >= int64(1)<<(10*(group+1)) {
		group++
	}
	v := float64(n) / float64(int64(1)<<(10*group))

	s := strconv.FormatFloat(math.Round(v*10)/10, 'f', 1, 64)
	s = strings.TrimSuffix(s, ".0")
	whole, frac, _ := strings.Cut(s, ".")
	out := groupThousands(whole)
	if frac != "" {
		out += "." + frac
	}
	return out + " " + sizeUnits[group]
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
