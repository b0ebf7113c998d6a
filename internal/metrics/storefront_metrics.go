// Package metrics собирает Prometheus-метрики витрины: кэш, удалённые вызовы,
// операции с корзиной, сверку платежей, outbox и HTTP.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/storefront/internal/service/cartsync"
)

// StorefrontMetrics содержит все коллекторы сервиса.
type StorefrontMetrics struct {
	// Кэш
	cacheRequests  *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec

	// Commerce API
	remoteCallDuration *prometheus.HistogramVec

	// Корзина
	cartOperations      *prometheus.CounterVec
	remoteFallbacks     *prometheus.CounterVec
	staleCartRecoveries *prometheus.CounterVec
	loginMerges         prometheus.Counter
	loginMergeLines     *prometheus.CounterVec

	paymentOutcomes *prometheus.CounterVec

	// Outbox
	outboxPublishAttempts  *prometheus.CounterVec
	outboxPendingRecords   prometheus.Gauge
	outboxOldestPendingAge prometheus.Gauge
	outboxPruneRuns        *prometheus.CounterVec
	outboxPruned           prometheus.Counter

	httpRequestDuration *prometheus.HistogramVec
}

// New регистрирует метрики в registerer; nil — prometheus.DefaultRegisterer.
// Повторная регистрация возвращает уже зарегистрированные коллекторы.
func New(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		cacheRequests: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cache_requests_total",
			Help: "Cache lookups grouped by cache name and result (hit/miss).",
		}, []string{"cache", "result"})),
		cacheEvictions: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cache_evictions_total",
			Help: "Entries evicted by the LRU policy.",
		}, []string{"cache"})),
		remoteCallDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_commerce_call_duration_seconds",
			Help:    "Latency of commerce API calls.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"op", "result"})),
		cartOperations: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Cart operations grouped by operation, source of the result and outcome.",
		}, []string{"op", "source", "result"})),
		remoteFallbacks: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_remote_fallbacks_total",
			Help: "Cart mutations applied locally after the remote cart failed.",
		}, []string{"op"})),
		staleCartRecoveries: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_stale_recoveries_total",
			Help: "Remote carts recreated after the remembered cart id was rejected.",
		}, []string{"op"})),
		loginMerges: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cart_login_merges_total",
			Help: "Guest carts merged into a customer cart at sign-in.",
		})),
		loginMergeLines: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_login_merge_lines_total",
			Help: "Lines replayed during login merges grouped by outcome.",
		}, []string{"outcome"})),
		paymentOutcomes: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_payment_outcomes_total",
			Help: "Terminal payment reconciliation states grouped by provider.",
		}, []string{"provider", "state"})),
		outboxPublishAttempts: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_outbox_publish_attempts_total",
			Help: "Total number of outbox publish attempts grouped by result.",
		}, []string{"result"})),
		outboxPendingRecords: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_outbox_pending_records",
			Help: "Current number of pending records in transactional outbox.",
		})),
		outboxOldestPendingAge: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending outbox record.",
		})),
		outboxPruneRuns: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_outbox_prune_runs_total",
			Help: "Outbox prune runs grouped by result.",
		}, []string{"result"})),
		outboxPruned: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_outbox_pruned_total",
			Help: "Published outbox messages deleted after retention.",
		})),
		httpRequestDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP API latency grouped by route pattern and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"})),
	}
}

func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			existing, ok := alreadyRegistered.ExistingCollector.(C)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", alreadyRegistered.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return collector
}

// RecordCacheHit реализует cache.Recorder.
func (m *StorefrontMetrics) RecordCacheHit(cache string) {
	m.cacheRequests.WithLabelValues(cache, "hit").Inc()
}

// RecordCacheMiss реализует cache.Recorder.
func (m *StorefrontMetrics) RecordCacheMiss(cache string) {
	m.cacheRequests.WithLabelValues(cache, "miss").Inc()
}

// RecordCacheEviction реализует cache.Recorder.
func (m *StorefrontMetrics) RecordCacheEviction(cache string) {
	m.cacheEvictions.WithLabelValues(cache).Inc()
}

// ObserveRemoteCall реализует commerce.LatencyRecorder.
func (m *StorefrontMetrics) ObserveRemoteCall(op, result string, duration time.Duration) {
	m.remoteCallDuration.WithLabelValues(op, result).Observe(duration.Seconds())
}

// RecordCartOperation реализует cartsync.Recorder.
func (m *StorefrontMetrics) RecordCartOperation(op string, source cartsync.Source, result string) {
	m.cartOperations.WithLabelValues(op, string(source), result).Inc()
}

// RecordStaleCartRecovery реализует cartsync.Recorder.
func (m *StorefrontMetrics) RecordStaleCartRecovery(op string) {
	m.staleCartRecoveries.WithLabelValues(op).Inc()
}

// RecordRemoteFallback реализует cartsync.Recorder.
func (m *StorefrontMetrics) RecordRemoteFallback(op string) {
	m.remoteFallbacks.WithLabelValues(op).Inc()
}

// RecordLoginMerge реализует cartsync.Recorder.
func (m *StorefrontMetrics) RecordLoginMerge(replayed, failed int) {
	m.loginMerges.Inc()
	m.loginMergeLines.WithLabelValues("replayed").Add(float64(replayed))
	m.loginMergeLines.WithLabelValues("failed").Add(float64(failed))
}

// RecordPaymentOutcome реализует payment.Recorder.
func (m *StorefrontMetrics) RecordPaymentOutcome(provider, state string) {
	m.paymentOutcomes.WithLabelValues(provider, state).Inc()
}

// RecordOutboxPublish реализует outbox.Recorder.
func (m *StorefrontMetrics) RecordOutboxPublish(result string) {
	m.outboxPublishAttempts.WithLabelValues(result).Inc()
}

// SetOutboxBacklog реализует outbox.Recorder.
func (m *StorefrontMetrics) SetOutboxBacklog(pending int, oldestAge time.Duration) {
	m.outboxPendingRecords.Set(float64(pending))
	m.outboxOldestPendingAge.Set(oldestAge.Seconds())
}

// RecordOutboxPrune реализует outbox.PruneRecorder.
func (m *StorefrontMetrics) RecordOutboxPrune(result string, deleted int) {
	m.outboxPruneRuns.WithLabelValues(result).Inc()
	m.outboxPruned.Add(float64(deleted))
}

// ObserveHTTPRequest записывает длительность HTTP-запроса.
func (m *StorefrontMetrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestDuration.WithLabelValues(method, route, fmt.Sprintf("%d", status)).Observe(duration.Seconds())
}
