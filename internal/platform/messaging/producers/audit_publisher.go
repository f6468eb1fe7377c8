// Package producers contains Kafka producers for downstream event streams.
package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/procurement-reconciler/internal/config"
	"github.com/procurement-reconciler/internal/domain/audit"
)

// AuditPublisher broadcasts recorded audit events to a Kafka topic so external
// consumers (alerting, BI) can follow the reconciliation trail.
type AuditPublisher struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewAuditPublisher returns nil publisher if cfg.AuditTopic is empty
// (audit broadcasting disabled).
func NewAuditPublisher(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*AuditPublisher, error) {
	if cfg.AuditTopic == "" {
		logger.Info("Audit topic is not configured. AuditPublisher will not be initialized.")
		return nil, nil
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for audit publisher: %w", err)
	}
	defer conn.Close()

	err = ensureTopic(conn, cfg.AuditTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure audit topic %s exists: %w", cfg.AuditTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.AuditTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &AuditPublisher{
		logger: logger,
		writer: writer,
		topic:  cfg.AuditTopic,
	}, nil
}

// Publish writes one audit event to the topic. Events for the same
// transaction share a partition key so consumers see them in order.
func (p *AuditPublisher) Publish(ctx context.Context, event *audit.Event) error {
	if p == nil || p.writer == nil {
		return fmt.Errorf("audit publisher not initialized")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event for publishing: %w", err)
	}

	key := event.ID.String()
	if event.TransactionID != nil {
		key = event.TransactionID.String()
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish audit event to Kafka",
			"topic", p.topic,
			"event_type", string(event.EventType),
			"error", err,
		)
		return fmt.Errorf("failed to publish audit event to %s: %w", p.topic, err)
	}

	return nil
}

func (p *AuditPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing audit Kafka publisher", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close audit kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
