package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
)

// logPublisher публикует outbox-события в лог, когда брокер не настроен.
type logPublisher struct {
	logger *log.Entry
}

func (p logPublisher) Publish(event domain.OutboxMessage) error {
	p.logger.WithFields(log.Fields{
		"event_id":       event.ID,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"event_type":     event.EventType,
	}).Info("outbox event published to log")
	return nil
}

func newOutboxWorker(cfg Config, repo domain.OutboxRepository, producer *kafka.Producer, recorder *metrics.StorefrontMetrics, logger *log.Entry) *outbox.Worker {
	workerLogger := logger.WithField("component", "outbox-worker")
	options := []outbox.Option{
		outbox.WithLogger(workerLogger),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if recorder != nil {
		options = append(options, outbox.WithRecorder(recorder))
	}

	var publisher domain.OutboxPublisher = logPublisher{logger: workerLogger}
	if producer != nil {
		publisher = kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents)
		options = append(options, outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)))
	}
	return outbox.NewWorker(repo, publisher, options...)
}

// newOutboxPruner возвращает nil, если хранилище outbox не поддерживает удаление.
func newOutboxPruner(cfg Config, repo domain.OutboxRepository, recorder *metrics.StorefrontMetrics, logger *log.Entry) *outbox.Pruner {
	pruneRepo, ok := repo.(domain.OutboxPruner)
	if !ok {
		logger.Warn("outbox repository does not support pruning, published messages are kept")
		return nil
	}
	options := []outbox.PrunerOption{
		outbox.WithPruneLogger(logger.WithField("component", "outbox-pruner")),
		outbox.WithRetention(cfg.OutboxRetention),
		outbox.WithPruneInterval(cfg.OutboxPruneInterval),
	}
	if recorder != nil {
		options = append(options, outbox.WithPruneRecorder(recorder))
	}
	return outbox.NewPruner(pruneRepo, options...)
}

// startOutboxPruner запускает pruner в фоне; для nil pruner done уже закрыт.
func startOutboxPruner(ctx context.Context, pruner *outbox.Pruner) (context.CancelFunc, <-chan struct{}) {
	pruneCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	if pruner == nil {
		close(done)
		return cancel, done
	}
	go func() {
		defer close(done)
		pruner.Run(pruneCtx)
	}()
	return cancel, done
}

// startOutboxWorker запускает worker в фоне; done закрывается после выхода из Run.
func startOutboxWorker(ctx context.Context, worker *outbox.Worker) (context.CancelFunc, <-chan struct{}) {
	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(workerCtx)
	}()
	return cancel, done
}

// shutdownOutboxWorker останавливает worker и ждёт его завершения не дольше 5 секунд.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("outbox worker stop timed out")
	}
}
