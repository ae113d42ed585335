package kafka

import (
	"time"

	"github.com/saveup/marketplace/internal/domain"
)

// EventType определяет тип события заказа
type EventType string

const (
	// События жизненного цикла заказа
	EventTypeOrderCreated        EventType = "order.created"
	EventTypeOrderPaymentCapture EventType = "order.payment_captured"
	EventTypeOrderConfirmed      EventType = "order.confirmed"
	EventTypeOrderPartial        EventType = "order.partially_confirmed"
	EventTypeOrderCancelled      EventType = "order.cancelled"
	EventTypeRefundIssued        EventType = "order.refund_issued"
	EventTypeEcoPointsAwarded    EventType = "loyalty.eco_points_awarded"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "saveup.order.events"
	TopicLoyaltyEvents   = "saveup.loyalty.events"
	TopicDeadLetterQueue = "saveup.dlq" // Dead Letter Queue для failed messages
)

// Типы агрегатов в outbox-сообщениях
const (
	AggregateTypeOrder   = "order"
	AggregateTypeLoyalty = "loyalty"
)

// Kafka headers, которые downstream-потребители событий выставляют при retry
// и отправке в DLQ. Формат DLQ-сообщений потребителей разбирает cmd/dlq-reprocess.
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// EventTypeForStatus отображает терминальный статус подтверждения в тип события.
func EventTypeForStatus(status domain.OrderStatus) EventType {
	switch status {
	case domain.OrderStatusConfirmed:
		return EventTypeOrderConfirmed
	case domain.OrderStatusPartiallyConfirmed:
		return EventTypeOrderPartial
	case domain.OrderStatusCancelled:
		return EventTypeOrderCancelled
	default:
		return EventTypeOrderCreated
	}
}

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
