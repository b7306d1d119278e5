package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"

	"github.com/tair/appointment-payments/internal/payment/domain"
)

func sampleTask() domain.NotificationTask {
	return domain.NotificationTask{
		Kind:      domain.TaskBookingReceipt,
		TenantID:  uuid.New(),
		PaymentID: uuid.New(),
		To:        "asha@example.com",
		Subject:   "Your payment receipt",
		Retry:     domain.DefaultRetryPolicy(),
	}
}

func header(msg *sarama.ProducerMessage, key string) string {
	for _, h := range msg.Headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublisher_Enqueue(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	task := sampleTask()

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicPaymentNotifications {
			return fmt.Errorf("topic = %s", msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != task.PaymentID.String() {
			return fmt.Errorf("key = %s", key)
		}
		if header(msg, HeaderEventType) != domain.TaskBookingReceipt {
			return fmt.Errorf("event_type header = %q", header(msg, HeaderEventType))
		}
		value, _ := msg.Value.Encode()
		var decoded domain.NotificationTask
		if err := json.Unmarshal(value, &decoded); err != nil {
			return err
		}
		if decoded.ID == uuid.Nil || decoded.CreatedAt.IsZero() || decoded.Retry.MaxRetries != 5 {
			return fmt.Errorf("task not stamped: %+v", decoded)
		}
		return nil
	})

	p := NewPublisherWithProducer(producer, TopicPaymentNotifications)
	defer p.Close()

	handle, err := p.Enqueue(context.Background(), task)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if handle.Topic != TopicPaymentNotifications || handle.TaskID == "" {
		t.Errorf("unexpected handle %+v", handle)
	}
}

func TestPublisher_EnqueueFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewPublisherWithProducer(producer, TopicPaymentNotifications)
	defer p.Close()

	_, err := p.Enqueue(context.Background(), sampleTask())
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected ErrOutOfBrokers, got %v", err)
	}
}

func consumerMessage(t *testing.T, kind string, task domain.NotificationTask) *sarama.ConsumerMessage {
	t.Helper()
	value, err := json.Marshal(task)
	if err != nil {
		t.Fatal(err)
	}
	msg := &sarama.ConsumerMessage{Topic: TopicPaymentNotifications, Value: value}
	if kind != "" {
		msg.Headers = append(msg.Headers, &sarama.RecordHeader{Key: []byte(HeaderEventType), Value: []byte(kind)})
	}
	return msg
}

func TestConsumer_HandleMessage(t *testing.T) {
	task := sampleTask()
	task.ID = uuid.New()

	tests := []struct {
		name       string
		msg        *sarama.ConsumerMessage
		handlerErr error
		wantErr    bool
		wantCalled bool
	}{
		{
			name:       "Given registered kind Then handler receives the task",
			msg:        consumerMessage(t, domain.TaskBookingReceipt, task),
			wantCalled: true,
		},
		{
			name:    "Given no event_type header Then rejected",
			msg:     consumerMessage(t, "", task),
			wantErr: true,
		},
		{
			name:    "Given unknown kind Then rejected",
			msg:     consumerMessage(t, "notification.unknown", task),
			wantErr: true,
		},
		{
			name:       "Given failing handler Then error surfaces",
			msg:        consumerMessage(t, domain.TaskBookingReceipt, task),
			handlerErr: errors.New("smtp down"),
			wantErr:    true,
			wantCalled: true,
		},
		{
			name:    "Given corrupt payload Then rejected",
			msg:     &sarama.ConsumerMessage{Value: []byte("{"), Headers: []*sarama.RecordHeader{{Key: []byte(HeaderEventType), Value: []byte(domain.TaskBookingReceipt)}}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConsumer(nil, "test", []string{TopicPaymentNotifications})
			var got *domain.NotificationTask
			c.RegisterHandler(domain.TaskBookingReceipt, func(_ context.Context, received domain.NotificationTask) error {
				got = &received
				return tt.handlerErr
			})

			err := c.handleMessage(context.Background(), tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if (got != nil) != tt.wantCalled {
				t.Fatalf("handler called = %v, want %v", got != nil, tt.wantCalled)
			}
			if got != nil && got.ID != task.ID {
				t.Errorf("task id = %s, want %s", got.ID, task.ID)
			}
		})
	}
}
