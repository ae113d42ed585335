package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundStatus описывает результат инструкции возврата у платёжного шлюза.
type RefundStatus string

const (
	// RefundStatusProcessed — шлюз принял возврат, деньги уйдут покупателю.
	RefundStatusProcessed RefundStatus = "processed"
	// RefundStatusDeclined — шлюз отказал в возврате.
	RefundStatusDeclined RefundStatus = "declined"
)

// RefundInstruction — инструкция возврата для внешнего платёжного шлюза.
// Адресуется по внешнему идентификатору захваченного платежа.
type RefundInstruction struct {
	PaymentReference string
	OrderID          string
	Amount           decimal.Decimal
}

// RefundGateway описывает взаимодействие с платёжным шлюзом (PIX/карты).
// Сам шлюз — внешний сервис; здесь только контракт на частичный возврат.
type RefundGateway interface {
	// Refund отправляет инструкцию возврата. Ошибку или отказ шлюза движок
	// трактует как провал всей операции подтверждения.
	Refund(instruction RefundInstruction) (RefundStatus, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
