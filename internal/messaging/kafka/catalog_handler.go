package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// CatalogInvalidator сбрасывает закэшированные данные каталога.
type CatalogInvalidator interface {
	InvalidateProduct(productID string) int
	Clear()
}

// NewCatalogInvalidationHandler возвращает обработчик topic каталога:
// изменение или удаление товара сбрасывает его запись и все закэшированные списки.
// Неизвестные типы событий пропускаются, битые сообщения возвращают ошибку.
func NewCatalogInvalidationHandler(catalog CatalogInvalidator, logger *log.Entry) MessageHandler {
	if logger == nil {
		logger = log.WithField("component", "catalog-invalidation")
	}
	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		event, err := ParseCatalogEvent(message)
		if err != nil {
			return err
		}

		switch event.EventType {
		case EventTypeProductUpdated, EventTypeProductDeleted:
			if event.ProductID == "" {
				return fmt.Errorf("catalog event %s without product_id", event.EventType)
			}
			removed := catalog.InvalidateProduct(event.ProductID)
			logger.WithFields(log.Fields{
				"event":      event.EventType,
				"product_id": event.ProductID,
				"removed":    removed,
			}).Debug("catalog cache invalidated")
		case EventTypeCatalogReset:
			catalog.Clear()
			logger.Info("catalog cache cleared")
		default:
			logger.WithField("event", event.EventType).Debug("catalog event ignored")
		}
		return nil
	}
}
