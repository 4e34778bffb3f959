// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアントやアップロード・ブログの各フローから利用する。
type MetricsCollector interface {
	RecordAPICall(endpoint string, statusCode int, duration time.Duration)
	RecordAnalyzeOutcome(outcome string)
	RecordUploadRejected(reason string)
	RecordBlogFetch(success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	reg            prometheus.Registerer
	apiCalls       *prometheus.CounterVec
	apiLatency     *prometheus.HistogramVec
	analyzeResults *prometheus.CounterVec
	uploadRejected *prometheus.CounterVec
	blogFetches    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reg: reg,
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glowguard_api_requests_total",
			Help: "バックエンドAPI呼び出しの合計数（エンドポイント・ステータス別）",
		}, []string{"endpoint", "status_code"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glowguard_api_request_duration_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		analyzeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glowguard_analyze_total",
			Help: "画像解析リクエストの結果別合計数",
		}, []string{"outcome"}),
		uploadRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glowguard_upload_rejected_total",
			Help: "検証で拒否されたファイル選択の合計数",
		}, []string{"reason"}),
		blogFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glowguard_blog_fetch_total",
			Help: "ブログフィード取得の結果別合計数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.apiCalls,
		c.apiLatency,
		c.analyzeResults,
		c.uploadRejected,
		c.blogFetches,
	)

	return c
}

// RecordAPICall はバックエンドAPI呼び出しを記録する。
// ネットワークエラー等でステータスが得られない場合、statusCodeは0で記録する。
func (c *Collector) RecordAPICall(endpoint string, statusCode int, duration time.Duration) {
	c.apiCalls.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	c.apiLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordAnalyzeOutcome は解析リクエストの結果を記録する。
func (c *Collector) RecordAnalyzeOutcome(outcome string) {
	c.analyzeResults.WithLabelValues(outcome).Inc()
}

// RecordUploadRejected はファイル選択の拒否理由を記録する。
func (c *Collector) RecordUploadRejected(reason string) {
	c.uploadRejected.WithLabelValues(reason).Inc()
}

// RecordBlogFetch はブログフィード取得の成否を記録する。
func (c *Collector) RecordBlogFetch(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.blogFetches.WithLabelValues(result).Inc()
}

// ObserveActiveClients はメモリ上のクライアント数をスクレイプ時に読み取るゲージを登録する。
func (c *Collector) ObserveActiveClients(count func() int) {
	c.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "glowguard_active_clients",
		Help: "メモリ上に保持しているクライアント数",
	}, func() float64 { return float64(count()) }))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
