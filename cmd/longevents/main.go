// Command longevents correlates STARTED/FINISHED records, stores the pairs
// that ran longer than the threshold, and prints them.
//
// Usage: longevents [path | cloudwatch://<log-group>]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tinytelemetry/longevents/internal/backup"
	"github.com/tinytelemetry/longevents/internal/duckdb"
	"github.com/tinytelemetry/longevents/internal/ingest"
	"github.com/tinytelemetry/longevents/internal/metrics"
	"github.com/tinytelemetry/longevents/internal/model"
	"github.com/tinytelemetry/longevents/internal/pipeline"
	"github.com/tinytelemetry/longevents/internal/postgres"
	"github.com/tinytelemetry/longevents/internal/recordsource"
	"github.com/tinytelemetry/longevents/internal/report"
)

// Build variables - set by ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := loadConfig(os.Getenv(configEnvVar))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	if len(args) > 1 {
		logger.Warn("extra arguments ignored", zap.Strings("ignored", args[1:]))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting longevents",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("config", cfg.ConfigPath),
		zap.String("sink", cfg.Sink),
	)

	target := recordsource.Resolve(arg, cfg.DefaultInput)
	source, err := openSource(ctx, cfg, target, logger)
	if err != nil {
		logger.Warn("record source unavailable", zap.String("input", target.String()), zap.Error(err))
		source = recordsource.NewFailedSource(target.String(), err)
	}

	sink, err := openSink(ctx, cfg, logger)
	if err != nil {
		logger.Error("sink unavailable", zap.Error(err))
		return 1
	}

	if pruner, ok := sink.(duckdb.RunHistoryPruner); ok {
		if _, err := duckdb.PruneRunHistory(pruner, logger, duckdb.RetentionConfig{RetentionDays: cfg.RunRetention}); err != nil {
			logger.Warn("run history retention failed", zap.Error(err))
		}
	}

	var runMetrics *metrics.Run
	if cfg.MetricsTextfile != "" {
		runMetrics = metrics.NewRun()
	}

	p := pipeline.New(sink, source, logger, pipeline.Config{
		Threshold:    cfg.Threshold,
		IngestPolicy: cfg.ingestPolicy,
		Workers:      cfg.Workers,
		Metrics:      runMetrics,
	})
	rep, runErr := p.Run(ctx)

	if runErr == nil {
		if err := report.Render(os.Stdout, rep.Rows, cfg.outputFormat, logger); err != nil {
			logger.Warn("rendering results failed", zap.Error(err))
		}
	}

	if runMetrics != nil {
		if err := writeMetrics(runMetrics, cfg.MetricsTextfile); err != nil {
			logger.Warn("metrics textfile not written", zap.String("path", cfg.MetricsTextfile), zap.Error(err))
		}
	}

	if cfg.SnapshotDir != "" {
		snapshot(ctx, cfg, sink, logger)
	}

	if runErr != nil {
		logger.Error("run failed", zap.Error(runErr))
		return 1
	}
	return 0
}

func buildLogger(cfg appConfig) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(cfg.logLevel)
	logConfig.Sampling = nil
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.LogFormat != "json" {
		logConfig.Encoding = "console"
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	logConfig.OutputPaths = []string{"stderr"}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return nil, fmt.Errorf("creating log-file directory: %w", err)
		}
		logConfig.OutputPaths = append(logConfig.OutputPaths, cfg.LogFile)
	}
	return logConfig.Build()
}

func openSource(ctx context.Context, cfg appConfig, target recordsource.Target, logger *zap.Logger) (model.RecordSource, error) {
	decoder := ingest.NewDecoder(logger)

	switch target.Kind {
	case recordsource.KindFile:
		return recordsource.NewFileSource(target.Location, decoder, logger), nil
	case recordsource.KindCloudWatch:
		if target.Location == "" {
			return nil, fmt.Errorf("cloudwatch: empty log group")
		}
		client, err := newCloudWatchClient(ctx, cfg.CloudWatchRegion, cfg.CloudWatchProfile)
		if err != nil {
			return nil, fmt.Errorf("cloudwatch client: %w", err)
		}
		cwCfg := recordsource.CloudWatchConfig{
			Group:         target.Location,
			FilterPattern: cfg.CloudWatchFilter,
			RecordPath:    cfg.CloudWatchRecordPath,
			EndTime:       time.Now(),
		}
		if cfg.CloudWatchLookback > 0 {
			cwCfg.StartTime = cwCfg.EndTime.Add(-cfg.CloudWatchLookback)
		}
		return recordsource.NewCloudWatchSource(client, cwCfg, decoder, logger)
	default:
		return recordsource.NewBuiltinSource(decoder, logger), nil
	}
}

func newCloudWatchClient(ctx context.Context, region, profile string) (*cloudwatchlogs.Client, error) {
	var cfgOpts []func(*config.LoadOptions) error
	if region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(region))
	}
	if profile != "" {
		cfgOpts = append(cfgOpts, config.WithSharedConfigProfile(profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, err
	}
	return cloudwatchlogs.NewFromConfig(awsCfg), nil
}

// openSink connects the configured sink. Any failure is a SinkConnectError.
func openSink(ctx context.Context, cfg appConfig, logger *zap.Logger) (model.AlertSink, error) {
	switch cfg.Sink {
	case sinkPostgres:
		store, err := postgres.NewStore(ctx, cfg.DatabaseURL, cfg.QueryTimeout)
		if err != nil {
			return nil, pipeline.SinkConnectError(sinkPostgres, err)
		}
		store.SetLogger(logger)
		return store, nil
	default:
		store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
		if err != nil {
			return nil, pipeline.SinkConnectError(cfg.DBPath, err)
		}
		store.SetLogger(logger)
		return store, nil
	}
}

func writeMetrics(m *metrics.Run, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return m.WriteTextfile(path)
}

// snapshot copies the closed DuckDB file into snapshot-dir.
func snapshot(ctx context.Context, cfg appConfig, sink model.AlertSink, logger *zap.Logger) {
	src, ok := sink.(backup.Snapshotter)
	if !ok || src.DBPath() == "" {
		logger.Warn("snapshot-dir set but the sink is not a file-backed duckdb store")
		return
	}
	m, err := backup.NewManager(src, backup.Config{
		Enabled:  true,
		LocalDir: cfg.SnapshotDir,
		KeepLast: cfg.SnapshotKeep,
		Compress: cfg.SnapshotCompress,
	}, logger)
	if err != nil {
		logger.Warn("snapshot skipped", zap.Error(err))
		return
	}
	if _, err := m.RunOnce(ctx); err != nil {
		logger.Warn("snapshot failed", zap.Error(err))
	}
}
