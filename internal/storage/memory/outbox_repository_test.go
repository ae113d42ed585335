package memory

import (
	"errors"
	"testing"

	"github.com/saveup/marketplace/internal/domain"
)

func TestOutboxRepository_EnqueueAndPull(t *testing.T) {
	repo := NewOutboxRepository()

	msg, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.confirmed",
		Payload:       []byte(`{"status":"confirmed"}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("enqueue must assign an id")
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != msg.ID {
		t.Fatalf("unexpected pending messages: %+v", pending)
	}
}

func TestOutboxRepository_MarkSentAndFailed(t *testing.T) {
	repo := NewOutboxRepository()

	sent, err := repo.Enqueue(domain.OutboxMessage{AggregateID: "order-1", EventType: "order.confirmed"})
	if err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	failed, err := repo.Enqueue(domain.OutboxMessage{AggregateID: "order-2", EventType: "order.cancelled"})
	if err != nil {
		t.Fatalf("enqueue second: %v", err)
	}

	if err := repo.MarkSent(sent.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(failed.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %d messages", len(pending))
	}

	if err := repo.MarkSent("missing"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish for unknown id, got %v", err)
	}
}

func TestOutboxRepository_Stats(t *testing.T) {
	repo := NewOutboxRepository()

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats for empty outbox: %+v", stats)
	}

	first, err := repo.Enqueue(domain.OutboxMessage{AggregateID: "order-1", EventType: "order.confirmed"})
	if err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	if _, err := repo.Enqueue(domain.OutboxMessage{AggregateID: "order-2", EventType: "order.cancelled"}); err != nil {
		t.Fatalf("enqueue second: %v", err)
	}
	if err := repo.MarkSent(first.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	stats, err = repo.Stats()
	if err != nil {
		t.Fatalf("stats after enqueue: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Fatalf("pending count = %d, want 1", stats.PendingCount)
	}
	if stats.OldestPendingAt.IsZero() {
		t.Fatal("oldest pending timestamp must be set")
	}
}
