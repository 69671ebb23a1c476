package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监听服务的指标。nil 接收者上的方法均为空操作，测试中可以不创建
type Metrics struct {
	Registry *prometheus.Registry

	Passes        *prometheus.CounterVec
	FetchAttempts *prometheus.CounterVec
	Changes       *prometheus.CounterVec
	Publishes     *prometheus.CounterVec
	LastPass      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ncov_dump",
			Name:      "passes_total",
			Help:      "Completed passes over all collections, by result.",
		}, []string{"result"}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ncov_dump",
			Name:      "fetch_attempts_total",
			Help:      "Upstream fetch attempts, by collection and result.",
		}, []string{"collection", "result"}),
		Changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ncov_dump",
			Name:      "changes_total",
			Help:      "Detected payload changes, by collection.",
		}, []string{"collection"}),
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ncov_dump",
			Name:      "publishes_total",
			Help:      "Publish attempts, by result.",
		}, []string{"result"}),
		LastPass: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ncov_dump",
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time of the last finished pass.",
		}),
	}
	m.Registry.MustRegister(m.Passes, m.FetchAttempts, m.Changes, m.Publishes, m.LastPass)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveFetch(collection string, err error) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(collection, result(err)).Inc()
}

func (m *Metrics) ObserveChange(collection string) {
	if m == nil {
		return
	}
	m.Changes.WithLabelValues(collection).Inc()
}

func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	m.Publishes.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObservePass(err error, at time.Time) {
	if m == nil {
		return
	}
	m.Passes.WithLabelValues(result(err)).Inc()
	m.LastPass.Set(float64(at.Unix()))
}

// Handler prometheus 抓取入口
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
