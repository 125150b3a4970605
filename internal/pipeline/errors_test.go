package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageError(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&StageError{Stage: StagePersisted, Kind: ErrSinkWrite, Detail: "insert 2 rows into long_events", Err: cause})

	assert.ErrorIs(t, err, ErrSinkWrite)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrSinkQuery)
	assert.Equal(t, "Persisted: sink write (insert 2 rows into long_events): connection refused", err.Error())
}

func TestStageError_NoCause(t *testing.T) {
	err := &StageError{Stage: StageQueried, Kind: ErrSinkQuery}
	assert.Equal(t, "Queried: sink query", err.Error())
	assert.Len(t, err.Unwrap(), 1)
}

func TestSinkConnectError(t *testing.T) {
	cause := errors.New("no such host")
	err := SinkConnectError("postgres", cause)

	assert.ErrorIs(t, err, ErrSinkConnect)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StageInit, err.Stage)
}

func TestStageString(t *testing.T) {
	names := []string{"Init", "TableReset", "Ingested", "Correlated", "Classified", "Persisted", "Queried", "ShutDown"}
	for i, name := range names {
		assert.Equal(t, name, Stage(i).String())
	}
	assert.Equal(t, "Unknown", Stage(42).String())
}

func TestParseIngestPolicy(t *testing.T) {
	for in, want := range map[string]IngestPolicy{"": IngestContinue, "continue": IngestContinue, " FAIL ": IngestFail} {
		got, err := ParseIngestPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseIngestPolicy("retry")
	assert.Error(t, err)
}
