package recordsource

import (
	"context"
	"fmt"

	"github.com/tinytelemetry/longevents/internal/model"
)

// FailedSource stands in for a source that could not be constructed. Its
// Records call returns the construction error, so the failure is handled by
// the pipeline's ingest policy like any other read failure.
type FailedSource struct {
	name string
	err  error
}

// NewFailedSource wraps err as a source named name.
func NewFailedSource(name string, err error) *FailedSource {
	return &FailedSource{name: name, err: err}
}

func (s *FailedSource) Name() string { return s.name }

func (s *FailedSource) Records(context.Context) ([]model.Record, error) {
	return nil, fmt.Errorf("open %s: %w", s.name, s.err)
}
