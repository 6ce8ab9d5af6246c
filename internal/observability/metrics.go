package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	rateFetchCounter      *prometheus.CounterVec
	rateFetchHistogram    *prometheus.HistogramVec
	rateCacheCounter      *prometheus.CounterVec
	conversionCounter     *prometheus.CounterVec
	historyEntriesGauge   prometheus.Gauge
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		rateFetchCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_fetch_total",
			Help: "Exchange rate fetches by base currency and outcome",
		}, []string{"base", "result"})

		rateFetchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rate_fetch_duration_seconds",
			Help:    "Exchange rate provider latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"})

		rateCacheCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_cache_events_total",
			Help: "Rate cache lookups: hit, miss, stale, coalesced, discarded",
		}, []string{"outcome"})

		conversionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conversions_total",
			Help: "Per-target conversion outcomes",
		}, []string{"result"})

		historyEntriesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "history_entries",
			Help: "Entries currently held in the conversion history",
		})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			rateFetchCounter,
			rateFetchHistogram,
			rateCacheCounter,
			conversionCounter,
			historyEntriesGauge,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func ObserveRateFetch(base, result string, duration time.Duration) {
	if rateFetchCounter == nil {
		return
	}
	rateFetchCounter.WithLabelValues(base, result).Inc()
	rateFetchHistogram.WithLabelValues(result).Observe(duration.Seconds())
}

func IncrementRateCacheEvent(outcome string) {
	if rateCacheCounter == nil {
		return
	}
	rateCacheCounter.WithLabelValues(outcome).Inc()
}

func IncrementConversion(result string) {
	if conversionCounter == nil {
		return
	}
	conversionCounter.WithLabelValues(result).Inc()
}

func SetHistoryEntries(size int) {
	if historyEntriesGauge == nil {
		return
	}
	historyEntriesGauge.Set(float64(size))
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
