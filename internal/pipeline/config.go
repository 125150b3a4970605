package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/tinytelemetry/longevents/internal/metrics"
	"github.com/tinytelemetry/longevents/internal/model"
)

// IngestPolicy decides what a source read failure does to the run.
type IngestPolicy string

const (
	// IngestContinue logs the failure and runs the remaining stages with zero records.
	IngestContinue IngestPolicy = "continue"
	// IngestFail skips to ShutDown and returns the error from Run.
	IngestFail IngestPolicy = "fail"
)

// ParseIngestPolicy validates a configured policy. Empty means continue.
func ParseIngestPolicy(s string) (IngestPolicy, error) {
	switch p := IngestPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return IngestContinue, nil
	case IngestContinue, IngestFail:
		return p, nil
	default:
		return "", fmt.Errorf("unknown ingest policy %q (want continue or fail)", s)
	}
}

// Config holds run parameters. Threshold is used as given, so zero is a
// valid threshold; call DefaultConfig for the standard one.
type Config struct {
	Threshold    int64
	IngestPolicy IngestPolicy
	Workers      int          // correlator fan-out, <= 0 means GOMAXPROCS
	Metrics      *metrics.Run // optional
	Now          func() time.Time
}

// DefaultConfig returns the configuration used when New gets none.
func DefaultConfig() Config {
	return Config{
		Threshold:    model.DefaultThreshold,
		IngestPolicy: IngestContinue,
	}
}
