package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndSucceed()

	event := NewOrderEvent(
		EventTypeOrderCreated,
		"order-123",
		"awaiting_payment",
		map[string]interface{}{
			"customer_email": "maria@example.com",
		},
	)

	err := producer.PublishEvent(TopicOrderEvents, "order-123", event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewOrderEvent(EventTypeOrderCreated, "order-123", "awaiting_payment", nil)

	err := producer.PublishEvent(TopicOrderEvents, "order-123", event)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_MarshalError(t *testing.T) {
	producer := &Producer{
		producer: mocks.NewSyncProducer(t, nil),
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	// Каналы не сериализуются в JSON
	err := producer.PublishEvent(TopicOrderEvents, "key", make(chan int))
	if err == nil {
		t.Fatal("expected marshal error, got nil")
	}
}

func TestNewOrderEvent(t *testing.T) {
	metadata := map[string]interface{}{
		"refund_amount": "15.50",
	}

	before := time.Now()
	event := NewOrderEvent(EventTypeOrderPartial, "order-42", "partially_confirmed", metadata)

	if event.EventType != EventTypeOrderPartial {
		t.Errorf("unexpected event type: %s", event.EventType)
	}
	if event.OrderID != "order-42" {
		t.Errorf("unexpected order id: %s", event.OrderID)
	}
	if event.Status != "partially_confirmed" {
		t.Errorf("unexpected status: %s", event.Status)
	}
	if event.Metadata["refund_amount"] != "15.50" {
		t.Errorf("unexpected metadata: %v", event.Metadata)
	}
	if event.Timestamp.Before(before) {
		t.Error("timestamp should be set to now")
	}
}
