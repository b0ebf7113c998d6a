package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for _, mode := range []loadMode{modeBrowse, modeCart, modeCartClear} {
		got, err := parseMode(" " + string(mode) + " ")
		require.NoError(t, err)
		require.Equal(t, mode, got)
	}
	_, err := parseMode("checkout")
	require.Error(t, err)
}

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig([]string{
		"-base-url=http://shop.local:8080/",
		"-mode=cart-clear",
		"-product=prod_shoes",
		"-concurrency=5",
		"-duration=30s",
		"-timeout=2s",
	})
	require.NoError(t, err)
	require.Equal(t, "http://shop.local:8080", cfg.baseURL)
	require.Equal(t, modeCartClear, cfg.mode)
	require.Equal(t, "prod_shoes", cfg.productID)
	require.Equal(t, 30*time.Second, cfg.duration)
	require.False(t, cfg.totalSet)

	cfg, err = parseConfig([]string{"-mode=browse", "-total=10"})
	require.NoError(t, err)
	require.True(t, cfg.totalSet)
	require.Equal(t, 10, cfg.total)
}

func TestParseConfig_ValidationErrors(t *testing.T) {
	cases := map[string][]string{
		"product is required":     {"-mode=cart"},
		"concurrency must be > 0": {"-mode=browse", "-concurrency=0"},
		"timeout must be > 0":     {"-mode=browse", "-timeout=0s"},
		"quantity must be > 0":    {"-mode=browse", "-quantity=0"},
		"total must be > 0":       {"-mode=browse", "-total=0"},
		"duration must be >= 0":   {"-mode=browse", "-duration=-1s"},
		"unsupported mode":        {"-mode=refund"},
	}
	for want, args := range cases {
		_, err := parseConfig(args)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("%v: expected %q, got %v", args, want, err)
		}
	}
}

func TestDispatchJobs(t *testing.T) {
	jobs := make(chan int, 10)
	dispatchJobs(jobs, config{total: 3})
	var got []int
	for id := range jobs {
		got = append(got, id)
	}
	require.Equal(t, []int{0, 1, 2}, got)

	jobs = make(chan int, 10)
	dispatchJobs(jobs, config{total: 2, totalSet: true, duration: time.Second})
	count := 0
	for range jobs {
		count++
	}
	require.Equal(t, 2, count)
}

func TestCollectorAndReport(t *testing.T) {
	col := newCollector()
	col.record("scenario", 10*time.Millisecond, statusOK)
	col.record("scenario", 30*time.Millisecond, "502")
	col.record("AddItem", 5*time.Millisecond, statusOK)
	col.record("AddItem", 7*time.Millisecond, "409")

	result := col.buildReport(time.Now(), 2*time.Second)
	require.EqualValues(t, 2, result.TotalScenarios)
	require.EqualValues(t, 1, result.FailedScenarios)
	require.InDelta(t, 0.5, result.ErrorRate, 1e-9)
	require.InDelta(t, 1.0, result.RPS, 1e-9)
	require.NotContains(t, result.Requests, "scenario")
	require.EqualValues(t, 1, result.Requests["AddItem"].Statuses["409"])
	require.InDelta(t, 20.0, result.ScenarioLatencyMs.P50, 1e-9)
}

func TestPercentileAndRatio(t *testing.T) {
	require.Zero(t, percentile(nil, 50))
	require.Equal(t, 4.0, percentile([]float64{4}, 99))
	require.InDelta(t, 2.5, percentile([]float64{1, 2, 3, 4}, 50), 1e-9)
	require.Zero(t, ratio(1, 0))
	require.Equal(t, latencySummary{}, buildLatencySummary(nil))
}

func TestWriteJSONReport(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, writeJSONReport("report.json", report{TotalScenarios: 3}))
	raw, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	var decoded report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.EqualValues(t, 3, decoded.TotalScenarios)

	require.Error(t, writeJSONReport("../escape.json", report{}))
	require.Error(t, writeJSONReport(".", report{}))
}

func newStorefrontStub(t *testing.T, addStatus int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var clears atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerSessionID, "sess-1")
		_, _ = w.Write([]byte(`{"lines":[]}`))
	})
	mux.HandleFunc("POST /cart/items", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerSessionID) != "sess-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(addStatus)
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("PATCH /cart/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("GET /cart/totals", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("DELETE /cart", func(w http.ResponseWriter, _ *http.Request) {
		clears.Add(1)
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"products":[{"id":"prod_shoes"}]}`))
	})
	mux.HandleFunc("GET /products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"prod_shoes"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &clears
}

func TestRun_CartClearScenario(t *testing.T) {
	srv, clears := newStorefrontStub(t, http.StatusOK)

	cfg := config{baseURL: srv.URL, total: 6, concurrency: 3, timeout: time.Second, mode: modeCartClear, productID: "prod_shoes", quantity: 1}
	result := run(cfg, srv.Client())

	require.EqualValues(t, 6, result.TotalScenarios)
	require.Zero(t, result.FailedScenarios)
	require.EqualValues(t, 6, clears.Load())
	require.EqualValues(t, 6, result.Requests["UpdateItem"].Calls)
}

func TestRun_FailedRequestStopsScenario(t *testing.T) {
	srv, clears := newStorefrontStub(t, http.StatusConflict)

	cfg := config{baseURL: srv.URL, total: 2, concurrency: 1, timeout: time.Second, mode: modeCartClear, productID: "prod_shoes", quantity: 1}
	result := run(cfg, srv.Client())

	require.EqualValues(t, 2, result.FailedScenarios)
	require.EqualValues(t, 2, result.Requests["AddItem"].Statuses["409"])
	require.NotContains(t, result.Requests, "UpdateItem")
	require.Zero(t, clears.Load())
}

func TestRun_BrowseScenario(t *testing.T) {
	srv, _ := newStorefrontStub(t, http.StatusOK)

	result := run(config{baseURL: srv.URL, total: 3, concurrency: 2, timeout: time.Second, mode: modeBrowse}, srv.Client())
	require.Zero(t, result.FailedScenarios)
	require.EqualValues(t, 3, result.Requests["GetProduct"].Calls)
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	result := report{
		TotalScenarios: 2,
		Requests: map[string]requestReport{
			"GetCart": {Calls: 2},
			"AddItem": {Calls: 2, Failed: 1},
		},
	}
	printReport(&buf, result, config{mode: modeCart, total: 2})

	out := buf.String()
	require.Contains(t, out, "mode=cart run=count:2")
	require.Less(t, strings.Index(out, "AddItem"), strings.Index(out, "GetCart"))
}
