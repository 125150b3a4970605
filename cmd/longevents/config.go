package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/tinytelemetry/longevents/internal/model"
	"github.com/tinytelemetry/longevents/internal/pipeline"
	"github.com/tinytelemetry/longevents/internal/report"
)

const (
	defaultThreshold          = model.DefaultThreshold
	defaultIngestPolicy       = string(pipeline.IngestContinue)
	defaultSink               = sinkDuckDB
	defaultQueryTimeout       = 30 * time.Second
	defaultOutputFormat       = string(report.FormatTable)
	defaultLogLevel           = "info"
	defaultLogFormat          = "console"
	defaultSnapshotKeep       = 24
	defaultRunRetention       = 30 // days, 0 = disabled
	defaultCloudWatchLookback = time.Hour

	sinkDuckDB   = "duckdb"
	sinkPostgres = "postgres"

	configEnvVar = "LONGEVENTS_CONFIG"
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Threshold            int64         `mapstructure:"threshold"`
	IngestPolicy         string        `mapstructure:"ingest-policy"`
	Workers              int           `mapstructure:"workers"`
	Sink                 string        `mapstructure:"sink"`
	DBPath               string        `mapstructure:"db-path"`
	DatabaseURL          string        `mapstructure:"database-url"`
	QueryTimeout         time.Duration `mapstructure:"query-timeout"`
	DefaultInput         string        `mapstructure:"default-input"`
	OutputFormat         string        `mapstructure:"output-format"`
	LogLevel             string        `mapstructure:"log-level"`
	LogFormat            string        `mapstructure:"log-format"`
	LogFile              string        `mapstructure:"log-file"`
	MetricsTextfile      string        `mapstructure:"metrics-textfile"`
	SnapshotDir          string        `mapstructure:"snapshot-dir"`
	SnapshotKeep         int           `mapstructure:"snapshot-keep"`
	SnapshotCompress     bool          `mapstructure:"snapshot-compress"`
	RunRetention         int           `mapstructure:"run-retention"`
	CloudWatchRegion     string        `mapstructure:"cloudwatch-region"`
	CloudWatchProfile    string        `mapstructure:"cloudwatch-profile"`
	CloudWatchFilter     string        `mapstructure:"cloudwatch-filter"`
	CloudWatchLookback   time.Duration `mapstructure:"cloudwatch-lookback"`
	CloudWatchRecordPath string        `mapstructure:"cloudwatch-record-path"`
	ConfigPath           string        `mapstructure:"-"` // not from config file

	ingestPolicy pipeline.IngestPolicy
	outputFormat report.Format
	logLevel     zapcore.Level
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	defaultDBPath := filepath.Join(home, ".local", "share", "longevents", "longevents.duckdb")

	v := viper.New()
	v.SetEnvPrefix("LONGEVENTS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("threshold", defaultThreshold)
	v.SetDefault("ingest-policy", defaultIngestPolicy)
	v.SetDefault("workers", 0)
	v.SetDefault("sink", defaultSink)
	v.SetDefault("db-path", defaultDBPath)
	v.SetDefault("database-url", "")
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("default-input", "")
	v.SetDefault("output-format", defaultOutputFormat)
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("log-format", defaultLogFormat)
	v.SetDefault("log-file", "")
	v.SetDefault("metrics-textfile", "")
	v.SetDefault("snapshot-dir", "")
	v.SetDefault("snapshot-keep", defaultSnapshotKeep)
	v.SetDefault("snapshot-compress", false)
	v.SetDefault("run-retention", defaultRunRetention)
	v.SetDefault("cloudwatch-region", "")
	v.SetDefault("cloudwatch-profile", "")
	v.SetDefault("cloudwatch-filter", "")
	v.SetDefault("cloudwatch-lookback", defaultCloudWatchLookback)
	v.SetDefault("cloudwatch-record-path", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		defaultConfigPath := filepath.Join(home, ".config", "longevents", "config.yml")
		v.SetConfigFile(defaultConfigPath)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.ingestPolicy, err = pipeline.ParseIngestPolicy(cfg.IngestPolicy); err != nil {
		return cfg, err
	}
	if cfg.outputFormat, err = report.ParseFormat(cfg.OutputFormat); err != nil {
		return cfg, err
	}
	if cfg.logLevel, err = zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return cfg, fmt.Errorf("invalid log-level: %w", err)
	}
	switch cfg.LogFormat {
	case "console", "json":
	default:
		return cfg, fmt.Errorf("invalid log-format: %q (want console or json)", cfg.LogFormat)
	}
	switch cfg.Sink {
	case sinkDuckDB:
	case sinkPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, fmt.Errorf("database-url is required when sink is postgres")
		}
	default:
		return cfg, fmt.Errorf("invalid sink: %q (want duckdb or postgres)", cfg.Sink)
	}
	if cfg.Workers < 0 {
		return cfg, fmt.Errorf("invalid workers: %d", cfg.Workers)
	}
	if cfg.QueryTimeout <= 0 {
		return cfg, fmt.Errorf("invalid query-timeout: %s", cfg.QueryTimeout)
	}
	if cfg.SnapshotKeep < 0 {
		return cfg, fmt.Errorf("invalid snapshot-keep: %d", cfg.SnapshotKeep)
	}
	if cfg.RunRetention < 0 {
		return cfg, fmt.Errorf("invalid run-retention: %d", cfg.RunRetention)
	}
	if cfg.CloudWatchLookback < 0 {
		return cfg, fmt.Errorf("invalid cloudwatch-lookback: %s", cfg.CloudWatchLookback)
	}

	// Expand ~ in paths
	for _, p := range []*string{&cfg.DBPath, &cfg.DefaultInput, &cfg.LogFile, &cfg.MetricsTextfile, &cfg.SnapshotDir} {
		if strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(home, (*p)[2:])
		}
	}

	return cfg, nil
}
