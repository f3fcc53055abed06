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
// ハンドラーやミドルウェアから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(method, route string, duration time.Duration)
	RecordLoginSuccess(method string)
	RecordLoginFailure(method string)
	RecordActivityLogged(entityType string)
	RecordPrioritySuggestion(priority string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	loginSuccess    *prometheus.CounterVec
	loginFail       *prometheus.CounterVec
	activityLogged  *prometheus.CounterVec
	prioritySuggest *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "propman_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propman_login_success_total",
			Help: "ログイン成功の合計数（認証方式別）",
		}, []string{"method"}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propman_login_fail_total",
			Help: "ログイン失敗の合計数（認証方式別）",
		}, []string{"method"}),
		activityLogged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propman_activity_logged_total",
			Help: "記録されたアクティビティの合計数（エンティティ種別）",
		}, []string{"entity_type"}),
		prioritySuggest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propman_priority_suggestion_total",
			Help: "優先度推定の合計数（推定結果別）",
		}, []string{"priority"}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestDuration,
		c.loginSuccess,
		c.loginFail,
		c.activityLogged,
		c.prioritySuggest,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestDuration(method, route string, duration time.Duration) {
	c.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess(method string) {
	c.loginSuccess.WithLabelValues(method).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure(method string) {
	c.loginFail.WithLabelValues(method).Inc()
}

// RecordActivityLogged はアクティビティ記録を記録する。
func (c *Collector) RecordActivityLogged(entityType string) {
	c.activityLogged.WithLabelValues(entityType).Inc()
}

// RecordPrioritySuggestion は優先度推定の実行を記録する。
func (c *Collector) RecordPrioritySuggestion(priority string) {
	c.prioritySuggest.WithLabelValues(priority).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
