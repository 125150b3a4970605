// Package correlate groups lifecycle records by id and pairs every STARTED
// record with every FINISHED record of the same group.
//
// Pairing is a full cross-product, not a 1:1 match: a group with m STARTED and
// n FINISHED records yields m*n pairs, and one FINISHED record may appear in
// several pairs. Groups are independent, so they are paired by a bounded
// worker fan-out and merged back in first-appearance order.
package correlate

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/longevents/internal/model"
)

// DefaultMinParallelGroups is the group count below which pairing runs inline.
const DefaultMinParallelGroups = 64

// Config holds tunable parameters for the correlator.
type Config struct {
	Workers           int // <= 0 means runtime.GOMAXPROCS(0)
	MinParallelGroups int
}

// Correlator pairs records within id groups.
type Correlator struct {
	workers           int
	minParallelGroups int
}

// Result is the outcome of one Correlate call.
type Result struct {
	IDs     []string                // group ids in first-appearance order
	Groups  map[string][]model.Pair // pairs per id; groups without pairs map to nil
	Ignored int                     // records whose state is neither STARTED nor FINISHED
}

// New creates a correlator.
func New(conf ...Config) *Correlator {
	workers := runtime.GOMAXPROCS(0)
	minParallel := DefaultMinParallelGroups
	if len(conf) > 0 {
		if conf[0].Workers > 0 {
			workers = conf[0].Workers
		}
		if conf[0].MinParallelGroups > 0 {
			minParallel = conf[0].MinParallelGroups
		}
	}
	return &Correlator{workers: workers, minParallelGroups: minParallel}
}

type group struct {
	started  []model.Record
	finished []model.Record
}

// Correlate partitions records by id and computes the pairs of every group.
// The input slice is not modified.
func (c *Correlator) Correlate(records []model.Record) *Result {
	res := &Result{Groups: make(map[string][]model.Pair)}

	index := make(map[string]int)
	var groups []*group
	for _, r := range records {
		i, ok := index[r.ID]
		if !ok {
			i = len(groups)
			index[r.ID] = i
			groups = append(groups, &group{})
			res.IDs = append(res.IDs, r.ID)
		}
		switch r.State {
		case model.StateStarted:
			groups[i].started = append(groups[i].started, r)
		case model.StateFinished:
			groups[i].finished = append(groups[i].finished, r)
		default:
			res.Ignored++
		}
	}

	pairs := make([][]model.Pair, len(groups))
	if c.workers <= 1 || len(groups) < c.minParallelGroups {
		for i, g := range groups {
			pairs[i] = pairGroup(g)
		}
	} else {
		var eg errgroup.Group
		eg.SetLimit(c.workers)
		for i, g := range groups {
			eg.Go(func() error {
				pairs[i] = pairGroup(g)
				return nil
			})
		}
		_ = eg.Wait() // workers never fail
	}

	for i, id := range res.IDs {
		res.Groups[id] = pairs[i]
	}
	return res
}

// pairGroup emits the STARTED x FINISHED cross-product, start-major.
func pairGroup(g *group) []model.Pair {
	if len(g.started) == 0 || len(g.finished) == 0 {
		return nil
	}
	out := make([]model.Pair, 0, len(g.started)*len(g.finished))
	for _, s := range g.started {
		for _, f := range g.finished {
			d := f.Timestamp - s.Timestamp
			finish := f
			finish.Duration = &d
			out = append(out, model.Pair{Start: s, Finish: finish, Duration: d})
		}
	}
	return out
}

// Pairs flattens all groups in first-appearance order.
func (r *Result) Pairs() []model.Pair {
	out := make([]model.Pair, 0, r.PairCount())
	for _, id := range r.IDs {
		out = append(out, r.Groups[id]...)
	}
	return out
}

// PairCount returns the total number of pairs across groups.
func (r *Result) PairCount() int {
	n := 0
	for _, p := range r.Groups {
		n += len(p)
	}
	return n
}
