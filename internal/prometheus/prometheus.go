// Package prometheus 导出服务自身的运行指标（登录、采集耗时等）
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homedash"

// 登录结果标签
const (
	LoginSuccess   = "success"
	LoginFailure   = "failure"
	LoginThrottled = "throttled"
)

// Metrics 持有独立的 Registry，避免测试之间共享全局默认注册表
type Metrics struct {
	registry *prometheus.Registry

	loginAttempts      *prometheus.CounterVec
	collections        *prometheus.CounterVec
	collectionDuration prometheus.Histogram
	streamClients      prometheus.Gauge
}

// New 创建并注册全部指标
func New(version string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		collections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_collections_total",
			Help:      "Host metrics collections by result.",
		}, []string{"result"}),
		collectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stats_collection_duration_seconds",
			Help:      "Time spent running all host probes.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stats_stream_clients",
			Help:      "Connected live stats websocket clients.",
		}),
	}

	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information.",
	}, []string{"version"})
	buildInfo.WithLabelValues(version).Set(1)

	reg.MustRegister(
		m.loginAttempts,
		m.collections,
		m.collectionDuration,
		m.streamClients,
		buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 预先创建标签，未发生过的结果也以 0 导出
	for _, r := range []string{LoginSuccess, LoginFailure, LoginThrottled} {
		m.loginAttempts.WithLabelValues(r)
	}
	m.collections.WithLabelValues("ok")
	m.collections.WithLabelValues("error")
	return m
}

// ObserveLogin 记录一次登录尝试
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(result).Inc()
}

// ObserveCollection 记录一次指标采集及其耗时
func (m *Metrics) ObserveCollection(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.collections.WithLabelValues(result).Inc()
	m.collectionDuration.Observe(d.Seconds())
}

// StreamConnected 实时推送连接数加一，返回的函数在断开时调用
func (m *Metrics) StreamConnected() func() {
	if m == nil {
		return func() {}
	}
	m.streamClients.Inc()
	return m.streamClients.Dec
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 的文本导出处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
