package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
)

type recordingInvalidator struct {
	invalidated []string
	cleared     int
}

func (r *recordingInvalidator) InvalidateProduct(id string) int {
	r.invalidated = append(r.invalidated, id)
	return 1
}

func (r *recordingInvalidator) Clear() {
	r.cleared++
}

func catalogMessage(t *testing.T, event *CatalogEvent) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: TopicCatalogEvents, Value: raw}
}

func TestCatalogInvalidationHandler(t *testing.T) {
	invalidator := &recordingInvalidator{}
	handler := NewCatalogInvalidationHandler(invalidator, nil)
	ctx := context.Background()

	for _, event := range []*CatalogEvent{
		NewCatalogEvent(EventTypeProductUpdated, "prod_1"),
		NewCatalogEvent(EventTypeProductDeleted, "prod_2"),
		NewCatalogEvent(EventTypeCatalogReset, ""),
		NewCatalogEvent("product.viewed", "prod_3"),
	} {
		if err := handler(ctx, catalogMessage(t, event)); err != nil {
			t.Fatalf("handle %s: %v", event.EventType, err)
		}
	}

	if len(invalidator.invalidated) != 2 || invalidator.invalidated[0] != "prod_1" || invalidator.invalidated[1] != "prod_2" {
		t.Fatalf("unexpected invalidations: %v", invalidator.invalidated)
	}
	if invalidator.cleared != 1 {
		t.Fatalf("expected one clear, got %d", invalidator.cleared)
	}
}

func TestCatalogInvalidationHandler_RejectsBadMessages(t *testing.T) {
	handler := NewCatalogInvalidationHandler(&recordingInvalidator{}, nil)
	ctx := context.Background()

	if err := handler(ctx, &sarama.ConsumerMessage{Value: []byte("{")}); err == nil {
		t.Fatal("expected error for corrupt message")
	}
	if err := handler(ctx, catalogMessage(t, NewCatalogEvent(EventTypeProductUpdated, ""))); err == nil {
		t.Fatal("expected error for event without product id")
	}
}
