package outbox

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultPruneInterval  = 10 * time.Minute
	defaultPruneBatchSize = 500
	defaultRetention      = 72 * time.Hour
)

// PruneRecorder получает результаты циклов очистки.
type PruneRecorder interface {
	RecordOutboxPrune(result string, deleted int)
}

// PrunerOptions задаёт параметры очистки опубликованных сообщений.
type PrunerOptions struct {
	Logger    *log.Entry
	Recorder  PruneRecorder
	Clock     func() time.Time
	Interval  time.Duration
	BatchSize int
	Retention time.Duration
}

// PrunerOption настраивает Pruner.
type PrunerOption func(*PrunerOptions)

func WithPruneLogger(logger *log.Entry) PrunerOption {
	return func(opts *PrunerOptions) {
		opts.Logger = logger
	}
}

func WithPruneRecorder(recorder PruneRecorder) PrunerOption {
	return func(opts *PrunerOptions) {
		opts.Recorder = recorder
	}
}

func WithPruneClock(clock func() time.Time) PrunerOption {
	return func(opts *PrunerOptions) {
		opts.Clock = clock
	}
}

// WithPruneInterval задаёт интервал между циклами очистки.
func WithPruneInterval(interval time.Duration) PrunerOption {
	return func(opts *PrunerOptions) {
		opts.Interval = interval
	}
}

// WithPruneBatchSize задаёт размер одного удаления.
func WithPruneBatchSize(batchSize int) PrunerOption {
	return func(opts *PrunerOptions) {
		opts.BatchSize = batchSize
	}
}

// WithRetention задаёт, сколько хранить отправленные сообщения.
func WithRetention(retention time.Duration) PrunerOption {
	return func(opts *PrunerOptions) {
		opts.Retention = retention
	}
}

// Pruner периодически удаляет отправленные outbox-сообщения старше retention.
// Pending и failed сообщения не трогает.
type Pruner struct {
	repo      domain.OutboxPruner
	logger    *log.Entry
	recorder  PruneRecorder
	clock     func() time.Time
	interval  time.Duration
	batchSize int
	retention time.Duration
}

// NewPruner создаёт воркер очистки outbox.
func NewPruner(repo domain.OutboxPruner, options ...PrunerOption) *Pruner {
	opts := PrunerOptions{
		Interval:  defaultPruneInterval,
		BatchSize: defaultPruneBatchSize,
		Retention: defaultRetention,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "outbox-pruner")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultPruneInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultPruneBatchSize
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}

	return &Pruner{
		repo:      repo,
		logger:    logger,
		recorder:  opts.Recorder,
		clock:     opts.Clock,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		retention: opts.Retention,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (p *Pruner) Run(ctx context.Context) {
	if p.repo == nil {
		p.logger.Warn("outbox pruner is disabled: repo is nil")
		return
	}

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	deleted, err := p.DeleteExpired(ctx, p.clock().UTC().Add(-p.retention))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.recordPrune("error", deleted)
		p.logger.WithError(err).Warn("outbox prune run failed")
		return
	}

	p.recordPrune("ok", deleted)
	if deleted > 0 {
		p.logger.WithField("deleted", deleted).Info("outbox prune completed")
	}
}

// DeleteExpired удаляет отправленные сообщения, обновлённые не позже before, порциями batchSize.
func (p *Pruner) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := p.repo.DeleteSentBefore(before, p.batchSize)
		if err != nil {
			return totalDeleted, err
		}
		totalDeleted += deleted

		if deleted < p.batchSize {
			return totalDeleted, nil
		}
	}
}

func (p *Pruner) recordPrune(result string, deleted int) {
	if p.recorder != nil {
		p.recorder.RecordOutboxPrune(result, deleted)
	}
}
