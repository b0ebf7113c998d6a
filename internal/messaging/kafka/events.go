package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// EventType определяет тип события
type EventType string

const (
	// EventTypeOrderCompleted — оплаченный заказ сохранён (публикуется из outbox).
	EventTypeOrderCompleted EventType = "order.completed"

	// События каталога, по которым сбрасывается кэш товаров.
	EventTypeProductUpdated EventType = "product.updated"
	EventTypeProductDeleted EventType = "product.deleted"
	EventTypeCatalogReset   EventType = "catalog.reset"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "storefront.order.events"
	TopicCatalogEvents   = "storefront.catalog.events"
	TopicDeadLetterQueue = "storefront.dlq"
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OutboxEnvelope — формат сообщения, в котором outbox-событие уходит в брокер.
type OutboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// CatalogEvent сообщает об изменении товара в commerce-бэкенде.
type CatalogEvent struct {
	EventType EventType `json:"event_type"`
	ProductID string    `json:"product_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCatalogEvent создает событие каталога
func NewCatalogEvent(eventType EventType, productID string) *CatalogEvent {
	return &CatalogEvent{
		EventType: eventType,
		ProductID: productID,
		Timestamp: time.Now().UTC(),
	}
}

// ParseCatalogEvent парсит CatalogEvent из сообщения
func ParseCatalogEvent(message *sarama.ConsumerMessage) (*CatalogEvent, error) {
	var event CatalogEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog event: %w", err)
	}
	return &event, nil
}

// ParseOutboxEnvelope парсит outbox-конверт из сообщения
func ParseOutboxEnvelope(message *sarama.ConsumerMessage) (*OutboxEnvelope, error) {
	var envelope OutboxEnvelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outbox envelope: %w", err)
	}
	return &envelope, nil
}
