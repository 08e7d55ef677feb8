// Package kafka publishes scan findings to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/whisper/internal/domain/detection"
	"github.com/ahrav/whisper/pkg/common"
	"github.com/ahrav/whisper/pkg/common/logger"
)

const scanIDHeader = "scan_id"

// Config holds the settings needed to reach the findings topic.
type Config struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// NewSaramaConfig returns the producer configuration used for findings.
// Every message waits for all in-sync replicas and is routed by its key so a
// file's findings land on the same partition.
func NewSaramaConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Version = sarama.V3_6_0_0
	return cfg
}

// Publisher sends findings to Kafka, one message per finding.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string

	logger *logger.Logger
	tracer trace.Tracer
}

// Connect dials the brokers in cfg, retrying until the producer is available
// or ctx is done.
func Connect(ctx context.Context, cfg Config, log *logger.Logger, tracer trace.Tracer) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: no topic configured")
	}

	producer, err := common.ConnectKafkaWithRetry(ctx, cfg.Brokers, NewSaramaConfig(cfg.ClientID), log)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "Connected to Kafka", "brokers", cfg.Brokers, "topic", cfg.Topic)

	return NewPublisher(producer, cfg.Topic, log, tracer), nil
}

// NewPublisher wraps an existing producer.
func NewPublisher(producer sarama.SyncProducer, topic string, log *logger.Logger, tracer trace.Tracer) *Publisher {
	if log == nil {
		log = logger.Noop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("findings_publisher")
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
		logger:   log.With("component", "findings_publisher"),
		tracer:   tracer,
	}
}

// findingMessage is the payload of a single published finding.
type findingMessage struct {
	ScanID      string            `json:"scan_id"`
	Finding     detection.Finding `json:"finding"`
	PublishedAt time.Time         `json:"published_at"`
}

// PublishFindings sends every finding of a scan as its own message keyed by
// file path. An empty slice sends nothing.
func (p *Publisher) PublishFindings(ctx context.Context, scanID string, findings []detection.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	ctx, span := startProducerSpan(ctx, p.tracer, p.topic, len(findings))
	defer span.End()
	span.SetAttributes(attribute.String("scan_id", scanID))

	now := time.Now().UTC()
	msgs := make([]*sarama.ProducerMessage, 0, len(findings))
	for _, f := range findings {
		payload, err := json.Marshal(findingMessage{ScanID: scanID, Finding: f, PublishedAt: now})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to marshal finding")
			return fmt.Errorf("failed to marshal finding for %s: %w", f.File(), err)
		}

		msg := &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(f.File()),
			Value: sarama.ByteEncoder(payload),
			Headers: []sarama.RecordHeader{
				{Key: []byte(scanIDHeader), Value: []byte(scanID)},
			},
		}
		injectTraceContext(ctx, msg)
		msgs = append(msgs, msg)
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish findings")
		return fmt.Errorf("failed to publish %d findings to %s: %w", len(msgs), p.topic, err)
	}

	span.SetStatus(codes.Ok, "findings published")
	p.logger.Info(ctx, "Published findings", "scan_id", scanID, "count", len(msgs), "topic", p.topic)
	return nil
}

// Close flushes and closes the underlying producer.
func (p *Publisher) Close() error { return p.producer.Close() }
