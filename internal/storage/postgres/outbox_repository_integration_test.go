package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestOutboxRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	stored1, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "ord_1",
		EventType:     "order.completed",
		Payload:       []byte(`{"order_id":"ord_1"}`),
	})
	if err != nil {
		t.Fatalf("enqueue msg without id: %v", err)
	}
	if stored1.ID == "" {
		t.Fatal("expected generated id for outbox message")
	}

	stored2, err := repo.Enqueue(domain.OutboxMessage{
		ID:            "outbox-fixed-id",
		AggregateType: "order",
		AggregateID:   "ord_2",
		EventType:     "order.completed",
		Payload:       []byte(`{"order_id":"ord_2"}`),
	})
	if err != nil {
		t.Fatalf("enqueue msg with id: %v", err)
	}

	pending, err := repo.PullPending(0)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending messages, got %d", len(pending))
	}

	// Сообщения закреплены за первым вызовом и не выдаются повторно до истечения lease.
	again, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("second pull: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected claimed messages to be skipped, got %d", len(again))
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats before marks: %v", err)
	}
	if stats.PendingCount != 2 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats before marks: %+v", stats)
	}

	if err := repo.MarkSent(stored1.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(stored2.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	stats, err = repo.Stats()
	if err != nil {
		t.Fatalf("stats after marks: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected empty backlog, got %+v", stats)
	}

	if err := repo.MarkSent("missing"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish for missing id, got %v", err)
	}

	pruner, ok := repo.(domain.OutboxPruner)
	if !ok {
		t.Fatal("postgres outbox repository must support pruning")
	}
	deleted, err := pruner.DeleteSentBefore(time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("delete sent: %v", err)
	}
	// Failed-сообщение остаётся для разбора.
	if deleted != 1 {
		t.Fatalf("expected only the sent message to be deleted, got %d", deleted)
	}
}
