package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds. A *StageError matches its kind and its cause with errors.Is.
var (
	ErrSourceRead   = errors.New("source read")
	ErrSinkConnect  = errors.New("sink connect")
	ErrSinkReset    = errors.New("sink reset")
	ErrSinkWrite    = errors.New("sink write")
	ErrSinkQuery    = errors.New("sink query")
	ErrSinkShutdown = errors.New("sink shutdown")
)

// StageError is a failure attributed to one pipeline stage.
type StageError struct {
	Stage  Stage
	Kind   error  // one of the Err* kinds above
	Detail string // statement, table or input path involved
	Err    error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// SinkConnectError wraps a failure to open a sink. It is fatal to the run
// and produced before a Pipeline exists.
func SinkConnectError(detail string, err error) *StageError {
	return &StageError{Stage: StageInit, Kind: ErrSinkConnect, Detail: detail, Err: err}
}
