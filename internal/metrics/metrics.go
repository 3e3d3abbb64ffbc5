// Package metrics 提供 Prometheus 监控指标
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paike/paike/pkg/scheduler"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paike_http_requests_total",
		Help: "HTTP 请求总数",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paike_http_request_duration_seconds",
		Help:    "HTTP 请求延迟",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	}, []string{"method", "path"})

	generationRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paike_generation_runs_total",
		Help: "排课生成运行次数",
	}, []string{"status"})

	generationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paike_generation_duration_seconds",
		Help:    "排课生成耗时",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
	}, []string{"status"})

	generationAccuracy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "paike_generation_accuracy",
		Help: "最近一次生成的准确率",
	}, []string{"institution_id"})

	bestFitness = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "paike_best_fitness",
		Help: "在途运行的当前最优适应度",
	}, []string{"institution_id"})

	activeRuns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "paike_active_runs",
		Help: "在途生成运行数",
	})
)

var registerOnce sync.Once

// register 注册全部指标，重复注册时复用已有采集器
func register() {
	collectors := []prometheus.Collector{
		httpRequestsTotal, httpRequestDuration,
		generationRunsTotal, generationDuration,
		generationAccuracy, bestFitness, activeRuns,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}

// Handler 返回 Prometheus 抓取端点
func Handler() http.Handler {
	registerOnce.Do(register)
	return promhttp.Handler()
}

// RecordRequestMetrics 记录 HTTP 请求指标
func RecordRequestMetrics(method, path string, status int, duration time.Duration) {
	registerOnce.Do(register)
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Observer 生成运行的指标观察者
type Observer struct{}

// NewObserver 创建指标观察者
func NewObserver() *Observer {
	registerOnce.Do(register)
	return &Observer{}
}

// RunStarted 记录运行开始
func (o *Observer) RunStarted(institutionID uuid.UUID) {
	activeRuns.Inc()
}

// RunFinished 记录运行结束
func (o *Observer) RunFinished(institutionID uuid.UUID, state scheduler.RunState, seconds, accuracy float64) {
	activeRuns.Dec()
	generationRunsTotal.WithLabelValues(string(state)).Inc()
	generationDuration.WithLabelValues(string(state)).Observe(seconds)
	if state == scheduler.StateCompleted {
		generationAccuracy.WithLabelValues(institutionID.String()).Set(accuracy)
	}
}

// BestFitness 记录在途运行的最优适应度
func (o *Observer) BestFitness(institutionID uuid.UUID, fitness float64) {
	bestFitness.WithLabelValues(institutionID.String()).Set(fitness)
}
