// Package web 提供仪表盘的 JSON 接口、报表下载、日志流和指标。
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"BikeSharingDashboard/src/storage"
	"BikeSharingDashboard/src/store"
)

// SessionHeader 每个请求的会话ID
const SessionHeader = "X-Session-ID"

type sessionKey struct{}

// Server HTTP 服务
type Server struct {
	cache    *store.Cache
	paths    store.Paths
	opts     store.Options
	logger   *storage.Logger
	metrics  *Metrics
	registry *prometheus.Registry
	upgrader websocket.Upgrader
	router   chi.Router
}

// NewServer 创建服务并注册路由，加载指标接入 cache
func NewServer(cache *store.Cache, paths store.Paths, opts store.Options, logger *storage.Logger) *Server {
	registry := prometheus.NewRegistry()
	s := &Server{
		cache:    cache,
		paths:    paths,
		opts:     opts,
		logger:   logger,
		metrics:  NewMetrics(registry),
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	cache.OnLoad = s.metrics.ObserveLoad
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.session)
	r.Use(s.metrics.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Get("/logs", s.handleLogs)
	r.Get("/ws/logs", s.handleLogsWS)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/report.xlsx", s.handleReport)

		r.Group(func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Get("/views", s.handleViews)
			r.Get("/views/{name}", s.handleView)
			r.Get("/dashboard", s.handleDashboard)
			r.Post("/reload", s.handleReload)
		})
	})
	return r
}

// ServeHTTP 实现 http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// session 为每个请求分配会话ID，客户端提供的合法ID会被沿用
func (s *Server) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(SessionHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

// SessionID 取出请求的会话ID
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Load 通过缓存取得数据集
func (s *Server) Load() (*store.RecordStore, error) {
	return s.cache.Load(s.paths, s.opts)
}

// ListenAndServe 启动服务，ctx 取消后在 timeout 内优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string, timeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP服务已启动", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("正在关闭HTTP服务...")
	return srv.Shutdown(shutdownCtx)
}
