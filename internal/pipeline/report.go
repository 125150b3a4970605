package pipeline

import (
	"time"

	"github.com/tinytelemetry/longevents/internal/model"
)

// StageFailure is one degraded stage of a run.
type StageFailure struct {
	Stage Stage
	Err   error
}

// Report is the outcome of one Run.
type Report struct {
	RunID      string
	Input      string
	Threshold  int64
	Stage      Stage // last stage reached
	StartedAt  time.Time
	FinishedAt time.Time

	Records   int
	Groups    int
	Ignored   int
	Pairs     int
	Alerts    int
	Persisted int // rows read back from the sink

	Rows     []model.AlertRow
	Degraded []StageFailure
}

// Healthy reports whether every stage succeeded.
func (r *Report) Healthy() bool {
	return len(r.Degraded) == 0
}

// Summary converts the report into a run history entry.
func (r *Report) Summary() model.RunSummary {
	degraded := make([]string, 0, len(r.Degraded))
	for _, f := range r.Degraded {
		degraded = append(degraded, f.Stage.String())
	}
	return model.RunSummary{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Input:      r.Input,
		Records:    r.Records,
		Pairs:      r.Pairs,
		Alerts:     r.Alerts,
		Threshold:  r.Threshold,
		Degraded:   degraded,
	}
}
