package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/pkg/logger"
)

// Consumer wraps Kafka consumer
type Consumer struct {
	consumer      sarama.ConsumerGroup
	groupID       string
	topics        []string
	handlers      map[string]TaskHandler
	handlersMutex sync.RWMutex
	wg            sync.WaitGroup
}

// TaskHandler executes one notification task
type TaskHandler func(ctx context.Context, task domain.NotificationTask) error

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, groupID string, topics []string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("group_id", groupID).
		Strs("topics", topics).
		Msg("Kafka consumer initialized")

	return newConsumer(group, groupID, topics), nil
}

func newConsumer(group sarama.ConsumerGroup, groupID string, topics []string) *Consumer {
	return &Consumer{
		consumer: group,
		groupID:  groupID,
		topics:   topics,
		handlers: make(map[string]TaskHandler),
	}
}

// RegisterHandler registers a handler for a task kind
func (c *Consumer) RegisterHandler(kind string, handler TaskHandler) {
	c.handlersMutex.Lock()
	defer c.handlersMutex.Unlock()
	c.handlers[kind] = handler
	logger.Logger.Info().
		Str("kind", kind).
		Msg("Task handler registered")
}

// Start consumes until ctx is cancelled. Wait blocks until the loops exit.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{consumer: c}

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		for {
			if err := c.consumer.Consume(ctx, c.topics, handler); err != nil {
				logger.Logger.Error().
					Err(err).
					Msg("Error from consumer")
			}
			if ctx.Err() != nil {
				logger.Logger.Info().Msg("Consumer context cancelled, stopping...")
				return
			}
		}
	}()

	go func() {
		defer c.wg.Done()
		for err := range c.consumer.Errors() {
			logger.Logger.Error().
				Err(err).
				Msg("Consumer error")
		}
	}()

	logger.Logger.Info().
		Strs("topics", c.topics).
		Str("group_id", c.groupID).
		Msg("Kafka consumer started")

	return nil
}

// Wait blocks until the consume loop has stopped and Close has drained errors
func (c *Consumer) Wait() {
	c.wg.Wait()
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	if c.consumer != nil {
		return c.consumer.Close()
	}
	return nil
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim marks every message. Retrying is the task handler's job;
// a task that exhausts its policy is logged and dropped.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		_ = h.consumer.handleMessage(session.Context(), message)
		session.MarkMessage(message, "")
	}
	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	carrier := propagation.MapCarrier{}
	kind, taskID := "", ""
	for _, header := range message.Headers {
		switch key := string(header.Key); key {
		case "traceparent", "tracestate":
			carrier[key] = string(header.Value)
		case HeaderEventType:
			kind = string(header.Value)
		case HeaderEventID:
			taskID = string(header.Value)
		}
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	tracer := otel.Tracer("kafka-consumer")
	ctx, span := tracer.Start(ctx, "kafka.consume.notification_task",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.source", message.Topic),
			attribute.String("messaging.source_kind", "topic"),
			attribute.Int("messaging.kafka.partition", int(message.Partition)),
			attribute.Int64("messaging.kafka.offset", message.Offset),
			attribute.String("task.kind", kind),
			attribute.String("task.id", taskID),
		),
	)
	defer span.End()

	if kind == "" {
		span.SetStatus(codes.Error, "Message without event_type header")
		logger.Warn(ctx).Int64("offset", message.Offset).Msg("Message without event_type header")
		return fmt.Errorf("message at offset %d has no %s header", message.Offset, HeaderEventType)
	}

	c.handlersMutex.RLock()
	handler, exists := c.handlers[kind]
	c.handlersMutex.RUnlock()
	if !exists {
		span.SetStatus(codes.Error, "No handler registered")
		logger.Warn(ctx).Str("kind", kind).Msg("No handler registered for task kind")
		return fmt.Errorf("no handler for task kind %q", kind)
	}

	var task domain.NotificationTask
	if err := json.Unmarshal(message.Value, &task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to unmarshal task")
		logger.Error(ctx).Err(err).Str("kind", kind).Msg("Failed to unmarshal task")
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	if err := handler(ctx, task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to handle task")
		logger.Error(ctx).
			Err(err).
			Str("kind", kind).
			Str("task_id", task.ID.String()).
			Str("payment_id", task.PaymentID.String()).
			Msg("Notification task failed")
		return err
	}

	span.SetStatus(codes.Ok, "Task handled")
	logger.Info(ctx).
		Str("kind", kind).
		Str("task_id", task.ID.String()).
		Str("payment_id", task.PaymentID.String()).
		Msg("Notification task handled")
	return nil
}
