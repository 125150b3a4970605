package correlate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/longevents/internal/model"
)

func started(id string, ts int64) model.Record {
	return model.Record{ID: id, State: model.StateStarted, Timestamp: ts}
}

func finished(id string, ts int64) model.Record {
	return model.Record{ID: id, State: model.StateFinished, Type: "APPLICATION_LOG", Host: "12345", Timestamp: ts}
}

func TestCorrelate_SinglePair(t *testing.T) {
	res := New().Correlate([]model.Record{started("id1", 100), finished("id1", 110)})

	require.Equal(t, []string{"id1"}, res.IDs)
	pairs := res.Groups["id1"]
	require.Len(t, pairs, 1)
	assert.Equal(t, int64(10), pairs[0].Duration)
	require.NotNil(t, pairs[0].Finish.Duration)
	assert.Equal(t, int64(10), *pairs[0].Finish.Duration)
	assert.Nil(t, pairs[0].Start.Duration)
}

func TestCorrelate_CrossProductCounts(t *testing.T) {
	cases := []struct{ m, n int }{{0, 0}, {1, 0}, {0, 3}, {1, 1}, {2, 2}, {3, 4}}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%dx%d", tc.m, tc.n), func(t *testing.T) {
			var records []model.Record
			for i := 0; i < tc.m; i++ {
				records = append(records, started("g", int64(i)))
			}
			for j := 0; j < tc.n; j++ {
				records = append(records, finished("g", int64(100+j)))
			}
			res := New().Correlate(records)
			assert.Len(t, res.Groups["g"], tc.m*tc.n)
			assert.Equal(t, tc.m*tc.n, res.PairCount())
		})
	}
}

func TestCorrelate_NegativeDuration(t *testing.T) {
	res := New().Correlate([]model.Record{finished("id1", 90), started("id1", 100)})
	require.Len(t, res.Groups["id1"], 1)
	assert.Equal(t, int64(-10), res.Groups["id1"][0].Duration)
}

func TestCorrelate_StartMajorOrder(t *testing.T) {
	records := []model.Record{
		started("id3", 100), started("id3", 103),
		finished("id3", 110), finished("id3", 106),
	}
	pairs := New().Correlate(records).Groups["id3"]
	require.Len(t, pairs, 4)

	got := make([]int64, 0, len(pairs))
	for _, p := range pairs {
		got = append(got, p.Duration)
	}
	assert.Equal(t, []int64{10, 6, 7, 3}, got)
}

func TestCorrelate_DuplicatesAreDistinct(t *testing.T) {
	records := []model.Record{started("d", 1), started("d", 1), finished("d", 9)}
	pairs := New().Correlate(records).Groups["d"]
	require.Len(t, pairs, 2)
	assert.Equal(t, pairs[0].Duration, pairs[1].Duration)
}

func TestCorrelate_UnknownStateIgnored(t *testing.T) {
	records := []model.Record{
		started("x", 1),
		{ID: "x", State: "PAUSED", Timestamp: 5},
		{ID: "x", State: "finished", Timestamp: 7},
		finished("x", 9),
	}
	res := New().Correlate(records)
	assert.Equal(t, 2, res.Ignored)
	require.Len(t, res.Groups["x"], 1)
	assert.Equal(t, int64(8), res.Groups["x"][0].Duration)
}

func TestCorrelate_GroupWithoutPairsStillListed(t *testing.T) {
	res := New().Correlate([]model.Record{started("id2", 1)})
	assert.Equal(t, []string{"id2"}, res.IDs)
	assert.Empty(t, res.Groups["id2"])
	assert.Empty(t, res.Pairs())
}

func TestCorrelate_DoesNotMutateInput(t *testing.T) {
	records := []model.Record{started("a", 1), finished("a", 20)}
	New().Correlate(records)
	assert.Nil(t, records[1].Duration)
}

func TestCorrelate_ParallelMatchesSequential(t *testing.T) {
	var records []model.Record
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("id%d", i%137)
		records = append(records, started(id, int64(i)))
		records = append(records, finished(id, int64(i+i%11)))
	}

	seq := New(Config{Workers: 1}).Correlate(records)
	par := New(Config{Workers: 8, MinParallelGroups: 1}).Correlate(records)

	assert.Equal(t, seq.IDs, par.IDs)
	assert.Equal(t, seq.Pairs(), par.Pairs())
}

func TestResultPairs_FollowsFirstAppearance(t *testing.T) {
	records := []model.Record{
		started("b", 0), started("a", 0), finished("a", 7), finished("b", 5),
	}
	pairs := New().Correlate(records).Pairs()
	require.Len(t, pairs, 2)
	assert.Equal(t, "b", pairs[0].Finish.ID)
	assert.Equal(t, "a", pairs[1].Finish.ID)
}
