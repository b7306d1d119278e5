package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/pkg/logger"
)

// Publisher is the Kafka-backed notification task queue
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher creates a new Kafka publisher. An empty topic selects
// TopicPaymentNotifications.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if topic == "" {
		topic = TopicPaymentNotifications
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Msg("Kafka publisher initialized")

	return NewPublisherWithProducer(producer, topic), nil
}

// NewPublisherWithProducer wraps an existing producer
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// Enqueue publishes a notification task. Tasks for one payment share a
// partition key so they are consumed in order.
func (p *Publisher) Enqueue(ctx context.Context, task domain.NotificationTask) (domain.TaskHandle, error) {
	tracer := otel.Tracer("kafka-publisher")
	ctx, span := tracer.Start(ctx, "kafka.publish.notification_task",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", p.topic),
			attribute.String("messaging.destination_kind", "topic"),
			attribute.String("task.kind", task.Kind),
			attribute.String("payment.id", task.PaymentID.String()),
		),
	)
	defer span.End()

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	span.SetAttributes(attribute.String("task.id", task.ID.String()))

	taskBytes, err := json.Marshal(task)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to marshal task")
		return domain.TaskHandle{}, fmt.Errorf("failed to marshal task: %w", err)
	}

	// Inject trace context into Kafka headers
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderEventType), Value: []byte(task.Kind)},
		{Key: []byte(HeaderEventID), Value: []byte(task.ID.String())},
		{Key: []byte(HeaderTenantID), Value: []byte(task.TenantID.String())},
	}
	for key, value := range carrier {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte(key),
			Value: []byte(value),
		})
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(task.PaymentID.String()),
		Value:   sarama.ByteEncoder(taskBytes),
		Headers: headers,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to send message")
		logger.Error(ctx).
			Err(err).
			Str("topic", p.topic).
			Str("task_id", task.ID.String()).
			Str("payment_id", task.PaymentID.String()).
			Msg("Failed to enqueue notification task")
		return domain.TaskHandle{}, fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	span.SetStatus(codes.Ok, "Task enqueued")

	logger.Info(ctx).
		Str("task_id", task.ID.String()).
		Str("kind", task.Kind).
		Str("topic", p.topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Str("payment_id", task.PaymentID.String()).
		Msg("Notification task enqueued")

	return domain.TaskHandle{
		TaskID:    task.ID.String(),
		Topic:     p.topic,
		Partition: partition,
		Offset:    offset,
	}, nil
}

// Close closes the Kafka producer
func (p *Publisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domain.TaskQueue = (*Publisher)(nil)
