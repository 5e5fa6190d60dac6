// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordGenerationSuccess()
	RecordGenerationFailure(reason string)
	RecordGenerationRetry()
	RecordGenerationLatency(duration time.Duration)
	RecordSuggestion(kind string)
	RecordCleanupDeleted(resource string, count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	genSuccess     prometheus.Counter
	genFail        prometheus.Counter
	genRetry       prometheus.Counter
	genLatency     prometheus.Histogram
	suggestions    *prometheus.CounterVec
	cleanupDeleted *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		genSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atelier_art_generation_success_total",
			Help: "コンセプトアート生成成功の合計数",
		}),
		genFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atelier_art_generation_fail_total",
			Help: "コンセプトアート生成失敗の合計数",
		}),
		genRetry: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atelier_art_generation_retry_total",
			Help: "コンセプトアート生成リトライの合計数",
		}),
		genLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "atelier_art_generation_latency_seconds",
			Help:    "コンセプトアート生成のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_suggestions_total",
			Help: "AI提案リクエストの種別ごとの合計数",
		}, []string{"kind"}),
		cleanupDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_cleanup_deleted_total",
			Help: "クリーンアップで削除されたリソースの合計数",
		}, []string{"resource"}),
	}

	reg.MustRegister(
		c.genSuccess,
		c.genFail,
		c.genRetry,
		c.genLatency,
		c.suggestions,
		c.cleanupDeleted,
	)

	return c
}

// RecordGenerationSuccess はアート生成成功を記録する。
func (c *Collector) RecordGenerationSuccess() {
	c.genSuccess.Inc()
}

// RecordGenerationFailure はアート生成失敗を記録する。
func (c *Collector) RecordGenerationFailure(reason string) {
	c.genFail.Inc()
}

// RecordGenerationRetry はアート生成のリトライを記録する。
func (c *Collector) RecordGenerationRetry() {
	c.genRetry.Inc()
}

// RecordGenerationLatency はアート生成のレイテンシを記録する。
func (c *Collector) RecordGenerationLatency(duration time.Duration) {
	c.genLatency.Observe(duration.Seconds())
}

// RecordSuggestion はAI提案リクエストを種別付きで記録する。
func (c *Collector) RecordSuggestion(kind string) {
	c.suggestions.WithLabelValues(kind).Inc()
}

// RecordCleanupDeleted はクリーンアップの削除件数をリソース種別付きで記録する。
func (c *Collector) RecordCleanupDeleted(resource string, count int64) {
	c.cleanupDeleted.WithLabelValues(resource).Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
