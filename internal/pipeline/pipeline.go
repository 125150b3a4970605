// Package pipeline drives one bounded run: reset the sink, ingest records,
// correlate and classify them, persist the alert rows as a single batch,
// read them back, and shut the sink down.
//
// Only a sink that cannot be opened is fatal. Every other failure is logged
// with its stage and the run moves on; Report.Degraded lists what failed.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tinytelemetry/longevents/internal/alert"
	"github.com/tinytelemetry/longevents/internal/correlate"
	"github.com/tinytelemetry/longevents/internal/model"
)

// Pipeline runs the correlation stages against one source and one sink.
type Pipeline struct {
	sink       model.AlertSink
	source     model.RecordSource
	logger     *zap.Logger
	cfg        Config
	correlator *correlate.Correlator

	stage atomic.Int32
}

// New creates a pipeline. With no Config, DefaultConfig is used.
func New(sink model.AlertSink, source model.RecordSource, logger *zap.Logger, conf ...Config) *Pipeline {
	cfg := DefaultConfig()
	if len(conf) > 0 {
		cfg = conf[0]
	}
	if cfg.IngestPolicy == "" {
		cfg.IngestPolicy = IngestContinue
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		sink:       sink,
		source:     source,
		logger:     logger,
		cfg:        cfg,
		correlator: correlate.New(correlate.Config{Workers: cfg.Workers}),
	}
}

// Stage returns the stage the pipeline last entered.
func (p *Pipeline) Stage() Stage {
	return Stage(p.stage.Load())
}

// run carries the state of a single Run call.
type run struct {
	*Pipeline
	log    *zap.Logger
	report *Report
	mark   time.Time
}

// enter moves to stage and records how long the previous stage took.
func (r *run) enter(stage Stage) {
	now := time.Now()
	r.cfg.Metrics.ObserveStage(stage.String(), now.Sub(r.mark))
	r.mark = now
	r.stage.Store(int32(stage))
	r.report.Stage = stage
	r.log.Debug("pipeline: stage", zap.Stringer("stage", stage))
}

// degrade records a failed stage and returns it as a *StageError.
func (r *run) degrade(stage Stage, kind error, detail string, err error) *StageError {
	se := &StageError{Stage: stage, Kind: kind, Detail: detail, Err: err}
	r.report.Degraded = append(r.report.Degraded, StageFailure{Stage: stage, Err: se})
	r.cfg.Metrics.StageFailed(stage.String(), kind.Error())
	r.log.Error("pipeline: stage degraded",
		zap.Stringer("stage", stage),
		zap.String("kind", kind.Error()),
		zap.String("detail", detail),
		zap.Error(err),
	)
	return se
}

// Run executes every stage once. The returned error is non-nil only when the
// ingest policy is IngestFail and the source could not be read; the report
// is returned either way.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	r := &run{
		Pipeline: p,
		report: &Report{
			RunID:     uuid.NewString(),
			Input:     p.source.Name(),
			Threshold: p.cfg.Threshold,
			StartedAt: p.cfg.Now(),
			Stage:     StageInit,
		},
		mark: time.Now(),
	}
	r.log = p.logger.With(zap.String("run_id", r.report.RunID))
	p.stage.Store(int32(StageInit))

	r.log.Info("pipeline: run started",
		zap.String("input", r.report.Input),
		zap.Int64("threshold", p.cfg.Threshold),
		zap.String("ingest_policy", string(p.cfg.IngestPolicy)),
	)

	table := model.DefaultTable
	if err := p.sink.Reset(); err != nil {
		r.degrade(StageTableReset, ErrSinkReset, "drop/create "+table, err)
	}
	r.enter(StageTableReset)

	records, err := p.source.Records(ctx)
	if err != nil {
		se := r.degrade(StageIngested, ErrSourceRead, r.report.Input, err)
		if p.cfg.IngestPolicy == IngestFail {
			r.shutdown(table)
			return r.report, se
		}
		records = nil
	}
	r.report.Records = len(records)
	p.cfg.Metrics.SetRecords(len(records))
	r.enter(StageIngested)

	res := p.correlator.Correlate(records)
	pairs := res.Pairs()
	r.report.Groups = len(res.IDs)
	r.report.Ignored = res.Ignored
	r.report.Pairs = len(pairs)
	p.cfg.Metrics.SetPairs(len(pairs))
	if res.Ignored > 0 {
		r.log.Warn("pipeline: records with unknown state ignored", zap.Int("ignored", res.Ignored))
	}
	r.enter(StageCorrelated)

	long := alert.Classify(pairs, p.cfg.Threshold)
	r.report.Alerts = len(long)
	p.cfg.Metrics.SetAlerts(len(long))
	r.enter(StageClassified)

	rows := alert.Format(long)
	if len(rows) > 0 {
		if err := p.sink.WriteBatch(rows); err != nil {
			r.degrade(StagePersisted, ErrSinkWrite, fmt.Sprintf("insert %d rows into %s", len(rows), table), err)
		}
	}
	r.enter(StagePersisted)

	queried, err := p.sink.QueryAll()
	if err != nil {
		r.degrade(StageQueried, ErrSinkQuery, "select from "+table, err)
	}
	for _, row := range queried {
		r.log.Debug("pipeline: queried row",
			zap.String("id", row.ID),
			zap.Int64("duration", row.Duration),
			zap.String("type", row.Type),
			zap.String("host", row.Host),
			zap.Bool("alert", row.Alert),
		)
	}
	r.report.Rows = queried
	r.report.Persisted = len(queried)
	p.cfg.Metrics.SetPersisted(len(queried))
	r.enter(StageQueried)

	r.shutdown(table)
	return r.report, nil
}

// shutdown records the run in the sink's history when supported, then
// releases the sink.
func (r *run) shutdown(table string) {
	r.report.FinishedAt = r.cfg.Now()
	if rec, ok := r.sink.(model.RunRecorder); ok {
		if err := rec.RecordRun(r.report.Summary()); err != nil {
			r.log.Warn("pipeline: run history not recorded", zap.Error(err))
		}
	}
	if err := r.sink.Shutdown(); err != nil {
		r.degrade(StageShutDown, ErrSinkShutdown, table, err)
	}
	r.enter(StageShutDown)
	r.cfg.Metrics.Completed(r.report.FinishedAt)

	r.log.Info("pipeline: run finished",
		zap.Int("records", r.report.Records),
		zap.Int("pairs", r.report.Pairs),
		zap.Int("alerts", r.report.Alerts),
		zap.Int("persisted", r.report.Persisted),
		zap.Int("degraded", len(r.report.Degraded)),
		zap.Duration("elapsed", r.report.FinishedAt.Sub(r.report.StartedAt)),
	)
}
