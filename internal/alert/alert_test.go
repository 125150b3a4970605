package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/longevents/internal/model"
)

func pair(id string, d int64) model.Pair {
	return model.Pair{
		Start:    model.Record{ID: id, State: model.StateStarted, Type: "start-type", Host: "start-host"},
		Finish:   model.Record{ID: id, State: model.StateFinished, Type: "APPLICATION_LOG", Host: "12345"},
		Duration: d,
	}
}

func TestClassify_Boundary(t *testing.T) {
	got := Classify([]model.Pair{pair("a", 4), pair("b", 5)}, model.DefaultThreshold)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Finish.ID)
}

func TestClassify_KeepsOrderAndNegatives(t *testing.T) {
	in := []model.Pair{pair("a", 9), pair("b", -20), pair("c", 0), pair("d", 7)}

	got := Classify(in, 4)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Finish.ID)
	assert.Equal(t, "d", got[1].Finish.ID)

	all := Classify(in, -100)
	assert.Equal(t, in, all)
}

func TestClassify_Empty(t *testing.T) {
	assert.Empty(t, Classify(nil, 4))
}

func TestFormat_OneRowPerPair(t *testing.T) {
	in := []model.Pair{pair("id3", 10), pair("id3", 10), pair("id4", 6)}
	rows := Format(in)

	require.Len(t, rows, 3)
	assert.Equal(t, model.AlertRow{ID: "id3", Duration: 10, Type: "APPLICATION_LOG", Host: "12345", Alert: true}, rows[0])
	assert.Equal(t, rows[0], rows[1])
	assert.Equal(t, "id4", rows[2].ID)
}

func TestFormat_UsesFinishedMetadata(t *testing.T) {
	rows := Format([]model.Pair{pair("x", 5)})
	require.Len(t, rows, 1)
	assert.Equal(t, "APPLICATION_LOG", rows[0].Type)
	assert.Equal(t, "12345", rows[0].Host)
	assert.True(t, rows[0].Alert)
}
