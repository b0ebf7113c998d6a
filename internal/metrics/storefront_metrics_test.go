package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vladislavdragonenkov/storefront/internal/cache"
	"github.com/vladislavdragonenkov/storefront/internal/commerce"
	"github.com/vladislavdragonenkov/storefront/internal/service/cartsync"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

var (
	_ cache.Recorder           = (*StorefrontMetrics)(nil)
	_ commerce.LatencyRecorder = (*StorefrontMetrics)(nil)
	_ cartsync.Recorder        = (*StorefrontMetrics)(nil)
	_ payment.Recorder         = (*StorefrontMetrics)(nil)
	_ outbox.Recorder          = (*StorefrontMetrics)(nil)
	_ outbox.PruneRecorder     = (*StorefrontMetrics)(nil)
)

// find возвращает метрику с заданным именем и набором меток.
func find(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelsMatch(metric.GetLabel(), labels) {
				return metric
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, pair := range pairs {
		if want[pair.GetName()] != pair.GetValue() {
			return false
		}
	}
	return true
}

func TestCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	c := cache.New[string](cache.WithName("products"), cache.WithMaxEntries(1), cache.WithRecorder(m))
	c.Set("a", "A")
	c.Get("a")
	c.Get("missing")
	c.Set("b", "B")

	if got := find(t, reg, "storefront_cache_requests_total", map[string]string{"cache": "products", "result": "hit"}).GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 hit, got %v", got)
	}
	if got := find(t, reg, "storefront_cache_requests_total", map[string]string{"cache": "products", "result": "miss"}).GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 miss, got %v", got)
	}
	if got := find(t, reg, "storefront_cache_evictions_total", map[string]string{"cache": "products"}).GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 eviction, got %v", got)
	}
}

func TestCartMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordCartOperation("add_item", cartsync.SourceRemote, "ok")
	m.RecordCartOperation("add_item", cartsync.SourceRemote, "ok")
	m.RecordRemoteFallback("add_item")
	m.RecordStaleCartRecovery("update_quantity")
	m.RecordLoginMerge(3, 1)

	if got := find(t, reg, "storefront_cart_operations_total", map[string]string{"op": "add_item", "source": "remote", "result": "ok"}).GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 operations, got %v", got)
	}
	if got := find(t, reg, "storefront_cart_remote_fallbacks_total", map[string]string{"op": "add_item"}).GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 fallback, got %v", got)
	}
	if got := find(t, reg, "storefront_cart_stale_recoveries_total", map[string]string{"op": "update_quantity"}).GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 stale recovery, got %v", got)
	}
	if got := find(t, reg, "storefront_cart_login_merge_lines_total", map[string]string{"outcome": "replayed"}).GetCounter().GetValue(); got != 3 {
		t.Fatalf("expected 3 replayed lines, got %v", got)
	}
	if got := find(t, reg, "storefront_cart_login_merges_total", map[string]string{}).GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 merge, got %v", got)
	}
}

func TestPaymentOutboxAndLatencyMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordPaymentOutcome("vipps", "SUCCESS")
	m.RecordOutboxPublish(outbox.ResultSent)
	m.SetOutboxBacklog(4, 90*time.Second)
	m.RecordOutboxPrune("ok", 7)
	m.ObserveRemoteCall("get_cart", "ok", 120*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/cart", 200, 5*time.Millisecond)

	if got := find(t, reg, "storefront_payment_outcomes_total", map[string]string{"provider": "vipps", "state": "SUCCESS"}).GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 payment outcome, got %v", got)
	}
	if got := find(t, reg, "storefront_outbox_pending_records", map[string]string{}).GetGauge().GetValue(); got != 4 {
		t.Fatalf("expected 4 pending, got %v", got)
	}
	if got := find(t, reg, "storefront_outbox_oldest_pending_age_seconds", map[string]string{}).GetGauge().GetValue(); got != 90 {
		t.Fatalf("expected 90s age, got %v", got)
	}
	if got := find(t, reg, "storefront_outbox_pruned_total", map[string]string{}).GetCounter().GetValue(); got != 7 {
		t.Fatalf("expected 7 pruned, got %v", got)
	}
	if got := find(t, reg, "storefront_outbox_prune_runs_total", map[string]string{"result": "ok"}).GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 prune run, got %v", got)
	}
	if got := find(t, reg, "storefront_commerce_call_duration_seconds", map[string]string{"op": "get_cart", "result": "ok"}).GetHistogram().GetSampleCount(); got != 1 {
		t.Fatalf("expected 1 latency sample, got %v", got)
	}
	if got := find(t, reg, "storefront_http_request_duration_seconds", map[string]string{"method": "GET", "route": "/cart", "status": "200"}).GetHistogram().GetSampleCount(); got != 1 {
		t.Fatalf("expected 1 http sample, got %v", got)
	}
}

func TestNew_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	first.RecordPaymentOutcome("stripe", "FAILED")
	second.RecordPaymentOutcome("stripe", "FAILED")

	if got := find(t, reg, "storefront_payment_outcomes_total", map[string]string{"provider": "stripe", "state": "FAILED"}).GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}
