package app

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

const catalogConsumerGroup = "storefront-catalog-cache"

func splitBrokers(brokers string) []string {
	var list []string
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			list = append(list, broker)
		}
	}
	return list
}

// initKafkaProducer создаёт producer, если заданы brokers.
// Для пустого списка возвращает nil, nil.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList, logger.WithField("component", "kafka-producer"))
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// startCatalogConsumer подписывает кэш каталога на события изменения товаров.
// Сообщения, которые не удалось обработать, уходят в DLQ через producer.
func startCatalogConsumer(ctx context.Context, brokers string, catalog kafka.CatalogInvalidator, dlq *kafka.Producer, logger *log.Entry) (*kafka.Consumer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	consumerLogger := logger.WithField("component", "catalog-consumer")
	consumer, err := kafka.NewConsumer(
		brokerList,
		catalogConsumerGroup,
		[]string{kafka.TopicCatalogEvents},
		kafka.NewCatalogInvalidationHandler(catalog, consumerLogger),
		kafka.ConsumerOptions{
			Logger:      consumerLogger,
			DLQProducer: dlq,
		},
	)
	if err != nil {
		return nil, err
	}
	if err := consumer.Start(ctx); err != nil {
		_ = consumer.Stop()
		return nil, err
	}
	consumerLogger.WithField("topic", kafka.TopicCatalogEvents).Info("catalog consumer started")
	return consumer, nil
}

func stopCatalogConsumer(consumer *kafka.Consumer, logger *log.Entry) {
	if consumer == nil {
		return
	}
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop catalog consumer")
	}
}

// closeKafkaProducer закрывает producer, если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
