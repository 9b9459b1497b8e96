// Package metrics provides Prometheus collectors for the browsing engine:
// fetch attempts, cache tier lookups and writes, and navigation outcomes.
// Collectors live on a dedicated registry so tests and embedded sessions do
// not collide with the global default registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry 汇总 samftp 的所有指标，由 /-/metrics 暴露。
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	fetchAttemptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "samftp_fetch_attempts_total",
			Help: "Total number of directory fetch attempts by outcome",
		},
		[]string{"outcome"},
	)

	fetchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "samftp_fetch_duration_seconds",
			Help:    "Duration of a single directory fetch attempt",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	cacheLookupsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "samftp_cache_lookups_total",
			Help: "Listing cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)

	cacheWritesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "samftp_cache_writes_total",
			Help: "Listing cache writes by tier and result",
		},
		[]string{"tier", "result"},
	)

	navigationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "samftp_navigations_total",
			Help: "Navigation requests by listing source and result",
		},
		[]string{"source", "result"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler 返回 Prometheus 文本格式的 http.Handler。
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordFetchAttempt 记录一次抓取尝试及其耗时；outcome 取 ok 或错误种类。
func RecordFetchAttempt(outcome string, elapsed time.Duration) {
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
	fetchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordCacheLookup 记录缓存层查找结果：hit / miss / expired / corrupt。
func RecordCacheLookup(tier, result string) {
	cacheLookupsTotal.WithLabelValues(tier, result).Inc()
}

// RecordCacheWrite 记录缓存层写入结果。
func RecordCacheWrite(tier string, err error) {
	cacheWritesTotal.WithLabelValues(tier, resultLabel(err)).Inc()
}

// RecordNavigation 记录导航结果，source 为 cache 或 network。
func RecordNavigation(source string, err error) {
	navigationsTotal.WithLabelValues(source, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
