package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 服务指标
type Metrics struct {
	Requests    *prometheus.CounterVec
	Loads       *prometheus.CounterVec
	ComputeTime *prometheus.HistogramVec
	EmptyResult prometheus.Counter
}

// NewMetrics 创建并注册指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bikeshare",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bikeshare",
			Name:      "store_loads_total",
			Help:      "Data set loads that actually read the input files.",
		}, []string{"result"}),
		ComputeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bikeshare",
			Name:      "aggregation_seconds",
			Help:      "Time spent filtering and aggregating per request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view"}),
		EmptyResult: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bikeshare",
			Name:      "empty_results_total",
			Help:      "Requests whose filter matched no records.",
		}),
	}
	reg.MustRegister(m.Requests, m.Loads, m.ComputeTime, m.EmptyResult)
	return m
}

// ObserveLoad 作为 store.Cache 的 OnLoad 回调
func (m *Metrics) ObserveLoad(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Loads.WithLabelValues(result).Inc()
}

// instrument 按路由模板统计请求
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	})
}

func (m *Metrics) timeView(view string, start time.Time) {
	m.ComputeTime.WithLabelValues(view).Observe(time.Since(start).Seconds())
}
