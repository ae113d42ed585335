package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/saveup/marketplace/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
// Отдельные агрегаты можно направить в свои topics через WithAggregateTopic.
type OutboxTopicPublisher struct {
	producer        *Producer
	topic           string
	aggregateTopics map[string]string
}

// PublisherOption настраивает OutboxTopicPublisher.
type PublisherOption func(*OutboxTopicPublisher)

// WithAggregateTopic направляет сообщения агрегата aggregateType в topic
// вместо основного.
func WithAggregateTopic(aggregateType, topic string) PublisherOption {
	return func(p *OutboxTopicPublisher) {
		if p.aggregateTopics == nil {
			p.aggregateTopics = make(map[string]string)
		}
		p.aggregateTopics[aggregateType] = topic
	}
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string, options ...PublisherOption) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	publisher := &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
	for _, option := range options {
		option(publisher)
	}
	return publisher
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	// Ключ партиционирования — заказ, чтобы события одного заказа
	// сохраняли порядок.
	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return p.producer.PublishEvent(p.topicFor(event), key, envelope)
}

func (p *OutboxTopicPublisher) topicFor(event domain.OutboxMessage) string {
	if topic, ok := p.aggregateTopics[event.AggregateType]; ok {
		return topic
	}
	return p.topic
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
