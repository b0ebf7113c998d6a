// Package app собирает витрину из конфигурации: хранилища, клиенты внешних систем,
// фоновые worker'ы и серверы HTTP API, gRPC health и метрик.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Run запускает витрину и блокируется до отмены ctx или ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	logger.WithField("version", version.String()).Info("starting storefront")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.closeFn(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	recorder := metrics.New(prometheus.DefaultRegisterer)

	svc, err := initIntegrations(ctx, cfg, deps, recorder, logger)
	if err != nil {
		return err
	}

	// Kafka опциональна: без неё outbox пишет события в лог, кэш каталога живёт только по TTL.
	kafkaProducer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		kafkaProducer = nil
	}
	defer closeKafkaProducer(kafkaProducer, logger)

	catalogConsumer, err := startCatalogConsumer(ctx, cfg.KafkaBrokers, svc.catalog, kafkaProducer, logger)
	if err != nil {
		logger.WithError(err).Warn("catalog consumer is disabled")
	}
	defer stopCatalogConsumer(catalogConsumer, logger)

	worker := newOutboxWorker(cfg, deps.outboxRepo, kafkaProducer, recorder, logger)
	stopWorker, workerDone := startOutboxWorker(ctx, worker)
	defer shutdownOutboxWorker(stopWorker, workerDone, logger)

	stopPruner, prunerDone := startOutboxPruner(ctx, newOutboxPruner(cfg, deps.outboxRepo, recorder, logger))
	defer shutdownOutboxWorker(stopPruner, prunerDone, logger)

	// Прогрев первой страницы каталога, чтобы первый посетитель не ждал commerce API.
	svc.catalog.PreloadProducts(ctx, domain.ProductQuery{})

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}
	if deps.sessionChecker != nil {
		healthHandler.RegisterChecker("sessions", deps.sessionChecker)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	api := httpapi.New(httpapi.Dependencies{
		Sessions:     deps.sessions,
		Commerce:     svc.commerce,
		Catalog:      svc.catalog,
		Reconciler:   svc.reconciler,
		Orders:       deps.orders,
		Wishlist:     deps.wishlist,
		Verifier:     svc.verifier,
		StoreContext: svc.store,
		Pricing:      svc.pricing,
		Notifier:     logNotifier{logger: logger.WithField("component", "cart-notifier")},
		CartRecorder: recorder,
		HTTPRecorder: recorder,
		Logger:       logger.WithField("layer", "http"),
	})

	errCh := make(chan error, 2)
	apiSrv, err := startAPIServer(cfg.HTTPAddr, api.Handler(), logger, errCh)
	if err != nil {
		return fmt.Errorf("listen http api: %w", err)
	}
	defer shutdownHTTP(apiSrv, logger)

	grpcServer, healthServer := newGRPCServer(logger)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		logger.Infof("gRPC health сервер слушает %s", cfg.GRPCAddr)
		errCh <- grpcServer.Serve(lis)
	}()

	healthCtx, stopHealthSync := context.WithCancel(ctx)
	defer stopHealthSync()
	go syncGRPCHealth(healthCtx, healthServer, healthHandler)

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		stopHealthSync()
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stoppedCh := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stoppedCh)
		}()
		select {
		case <-stoppedCh:
		case <-time.After(5 * time.Second):
			logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
			grpcServer.Stop()
		}
		return ctx.Err()
	case err := <-errCh:
		grpcServer.Stop()
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}
