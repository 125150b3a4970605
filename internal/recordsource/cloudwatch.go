package recordsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/jmespath/go-jmespath"
	"go.uber.org/zap"

	"github.com/tinytelemetry/longevents/internal/ingest"
	"github.com/tinytelemetry/longevents/internal/model"
)

// LogsClient is the subset of the CloudWatch Logs API the source uses.
type LogsClient interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// CloudWatchConfig selects the events read from one log group.
type CloudWatchConfig struct {
	Group         string
	FilterPattern string // CloudWatch filter pattern; empty reads every event
	StartTime     time.Time
	EndTime       time.Time
	// RecordPath is an optional JMESPath expression locating the record object
	// inside each JSON message, e.g. "detail" or "payload.event".
	RecordPath string
}

// CloudWatchSource reads records embedded in CloudWatch Logs events.
// Each event message holds one record object.
type CloudWatchSource struct {
	client  LogsClient
	cfg     CloudWatchConfig
	decoder *ingest.Decoder
	logger  *zap.Logger
}

// NewCloudWatchSource creates a CloudWatch-backed record source.
func NewCloudWatchSource(client LogsClient, cfg CloudWatchConfig, decoder *ingest.Decoder, logger *zap.Logger) (*CloudWatchSource, error) {
	if client == nil {
		return nil, errors.New("cloudwatch: nil client")
	}
	if cfg.Group == "" {
		return nil, errors.New("cloudwatch: empty log group")
	}
	if cfg.RecordPath != "" {
		if _, err := jmespath.Compile(cfg.RecordPath); err != nil {
			return nil, fmt.Errorf("cloudwatch: record path: %w", err)
		}
	}
	if cfg.EndTime.IsZero() {
		cfg.EndTime = time.Now()
	}
	return &CloudWatchSource{client: client, cfg: cfg, decoder: decoder, logger: orNop(logger)}, nil
}

func (s *CloudWatchSource) Name() string { return CloudWatchScheme + s.cfg.Group }

// Records pages through the group's events in the configured window.
func (s *CloudWatchSource) Records(ctx context.Context) ([]model.Record, error) {
	in := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(s.cfg.Group),
		EndTime:      aws.Int64(s.cfg.EndTime.UnixMilli()),
		Interleaved:  aws.Bool(true),
	}
	if !s.cfg.StartTime.IsZero() {
		in.StartTime = aws.Int64(s.cfg.StartTime.UnixMilli())
	}
	if s.cfg.FilterPattern != "" {
		in.FilterPattern = aws.String(s.cfg.FilterPattern)
	}

	var records []model.Record
	var events, skipped int
	var next *string
	for {
		in.NextToken = next
		out, err := s.client.FilterLogEvents(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("cloudwatch: filter %s: %w", s.cfg.Group, err)
		}
		for _, e := range out.Events {
			events++
			rec, err := s.decodeMessage(aws.ToString(e.Message))
			if err != nil {
				skipped++
				s.logger.Warn("recordsource: skipping cloudwatch event",
					zap.String("group", s.cfg.Group),
					zap.String("event_id", aws.ToString(e.EventId)),
					zap.Error(err),
				)
				continue
			}
			records = append(records, rec)
		}
		if out.NextToken == nil || (next != nil && aws.ToString(out.NextToken) == aws.ToString(next)) {
			break
		}
		next = out.NextToken
	}

	s.logger.Info("recordsource: cloudwatch loaded",
		zap.String("group", s.cfg.Group),
		zap.Int("events", events),
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped),
	)
	return records, nil
}

func (s *CloudWatchSource) decodeMessage(msg string) (model.Record, error) {
	if s.cfg.RecordPath == "" {
		rec, _, err := s.decoder.DecodeObject([]byte(msg))
		return rec, err
	}

	var decoded any
	if err := json.Unmarshal([]byte(msg), &decoded); err != nil {
		return model.Record{}, fmt.Errorf("message is not JSON: %w", err)
	}
	found, err := jmespath.Search(s.cfg.RecordPath, decoded)
	if err != nil {
		return model.Record{}, fmt.Errorf("jmespath search failed: %w", err)
	}
	if found == nil {
		return model.Record{}, fmt.Errorf("record path %q matched nothing", s.cfg.RecordPath)
	}
	obj, err := json.Marshal(found)
	if err != nil {
		return model.Record{}, fmt.Errorf("marshal record: %w", err)
	}
	rec, _, err := s.decoder.DecodeObject(obj)
	return rec, err
}
