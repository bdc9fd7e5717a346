// Package metrics 提供Prometheus监控指标
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 排班服务指标集
type Metrics struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	resolveTotal    *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	autoFilled      prometheus.Counter
	conflictsFound  *prometheus.GaugeVec
	replayDuration  prometheus.Histogram
}

// New 在指定的注册表上注册指标
// reg 为 nil 时使用默认注册表；已注册的收集器直接复用
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medroster_http_requests_total",
			Help: "HTTP请求总数",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medroster_http_request_duration_seconds",
			Help:    "HTTP请求延迟",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		resolveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medroster_resolve_total",
			Help: "排班解析次数",
		}, []string{"kind", "status"}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "medroster_resolve_duration_seconds",
			Help:    "排班解析延迟",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		autoFilled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medroster_auto_filled_total",
			Help: "自动填充的场次总数",
		}),
		conflictsFound: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "medroster_conflicts",
			Help: "最近一次扫描发现的冲突数",
		}, []string{"kind"}),
		replayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "medroster_replay_duration_seconds",
			Help:    "公平性台账回放延迟",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
	}

	collectors := []prometheus.Collector{
		m.httpRequests, m.httpDuration, m.resolveTotal, m.resolveDuration,
		m.autoFilled, m.conflictsFound, m.replayDuration,
	}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[i] = are.ExistingCollector
		}
	}
	m.httpRequests = collectors[0].(*prometheus.CounterVec)
	m.httpDuration = collectors[1].(*prometheus.HistogramVec)
	m.resolveTotal = collectors[2].(*prometheus.CounterVec)
	m.resolveDuration = collectors[3].(prometheus.Histogram)
	m.autoFilled = collectors[4].(prometheus.Counter)
	m.conflictsFound = collectors[5].(*prometheus.GaugeVec)
	m.replayDuration = collectors[6].(prometheus.Histogram)

	return m, nil
}

// ObserveHTTP 记录一次HTTP请求
func (m *Metrics) ObserveHTTP(method, path string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveResolve 记录一次排班解析
func (m *Metrics) ObserveResolve(kind string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.resolveTotal.WithLabelValues(kind, status).Inc()
	m.resolveDuration.Observe(duration.Seconds())
}

// AddAutoFilled 累计自动填充数量
func (m *Metrics) AddAutoFilled(n int) {
	m.autoFilled.Add(float64(n))
}

// SetConflicts 更新冲突扫描结果
func (m *Metrics) SetConflicts(kind string, count int) {
	m.conflictsFound.WithLabelValues(kind).Set(float64(count))
}

// ObserveReplay 记录一次台账回放
func (m *Metrics) ObserveReplay(duration time.Duration) {
	m.replayDuration.Observe(duration.Seconds())
}
