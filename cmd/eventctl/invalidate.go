package main

import (
	"flag"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

type invalidateConfig struct {
	brokers   []string
	productID string
	deleted   bool
}

func parseInvalidateConfig(args []string, getenv func(string) string) (invalidateConfig, error) {
	var (
		cfg        invalidateConfig
		brokersRaw string
	)
	fs := flag.NewFlagSet("invalidate", flag.ContinueOnError)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: KAFKA_BROKERS)")
	fs.StringVar(&cfg.productID, "product", "", "product id; empty resets the whole catalog cache")
	fs.BoolVar(&cfg.deleted, "deleted", false, "product was deleted rather than updated")
	if err := fs.Parse(args); err != nil {
		return invalidateConfig{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = getenv("KAFKA_BROKERS")
	}
	cfg.brokers = parseBrokers(brokersRaw)
	if len(cfg.brokers) == 0 {
		return invalidateConfig{}, fmt.Errorf("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	}
	cfg.productID = strings.TrimSpace(cfg.productID)
	if cfg.deleted && cfg.productID == "" {
		return invalidateConfig{}, fmt.Errorf("-deleted requires -product")
	}
	return cfg, nil
}

// catalogEvent выбирает тип события по флагам.
func (c invalidateConfig) catalogEvent() *kafka.CatalogEvent {
	switch {
	case c.productID == "":
		return kafka.NewCatalogEvent(kafka.EventTypeCatalogReset, "")
	case c.deleted:
		return kafka.NewCatalogEvent(kafka.EventTypeProductDeleted, c.productID)
	default:
		return kafka.NewCatalogEvent(kafka.EventTypeProductUpdated, c.productID)
	}
}

func runInvalidate(cfg invalidateConfig) error {
	producer, err := kafka.NewProducer(cfg.brokers, log.WithField("component", "eventctl"))
	if err != nil {
		return err
	}
	defer func() { _ = producer.Close() }()

	return publishInvalidation(producer, cfg)
}

func publishInvalidation(producer *kafka.Producer, cfg invalidateConfig) error {
	event := cfg.catalogEvent()
	if err := producer.PublishCatalogEvent(event); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"event_type": event.EventType,
		"product_id": event.ProductID,
	}).Info("catalog invalidation published")
	return nil
}
