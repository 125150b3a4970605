package model

import (
	"fmt"
	"time"
)

// State is the lifecycle tag carried by a Record.
type State string

const (
	StateStarted  State = "STARTED"
	StateFinished State = "FINISHED"
)

// Known reports whether the correlator can pair records in this state.
func (s State) Known() bool {
	return s == StateStarted || s == StateFinished
}

// Record represents one lifecycle observation read from a record source.
// Records are passed by value; nothing downstream of ingestion mutates them.
type Record struct {
	ID        string
	State     State  // STARTED/FINISHED; other values are kept verbatim
	Type      string // only read from the FINISHED half
	Host      string // only read from the FINISHED half
	Timestamp int64  // milliseconds since epoch
	Duration  *int64 // nil on ingestion, set on the FINISHED half of a pair
}

func (r Record) String() string {
	d := "nil"
	if r.Duration != nil {
		d = fmt.Sprint(*r.Duration)
	}
	return fmt.Sprintf("Record[id=%s state=%s type=%s host=%s timestamp=%d duration=%s]",
		r.ID, r.State, r.Type, r.Host, r.Timestamp, d)
}

// Pair is one STARTED/FINISHED combination within a group.
// Duration is Finish.Timestamp - Start.Timestamp and may be negative.
type Pair struct {
	Start    Record
	Finish   Record
	Duration int64
}

// AlertRow is the persisted unit for one alerting pair.
type AlertRow struct {
	ID       string
	Duration int64
	Type     string
	Host     string
	Alert    bool
}

// RunSummary describes one completed pipeline run for the run history table.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Input      string
	Records    int
	Pairs      int
	Alerts     int
	Threshold  int64
	Degraded   []string // stage names that logged a failure
}
