package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/swarm-heartbeat/internal/interfaces/http/handler"
	"github.com/dreschagin/swarm-heartbeat/internal/interfaces/http/middleware"
	"github.com/dreschagin/swarm-heartbeat/pkg/config"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

// Router настраивает маршруты REST фасада агента
type Router struct {
	mux              *http.ServeMux
	heartbeatHandler *handler.HeartbeatAPIHandler
	projectHandler   *handler.ProjectAPIHandler
	snapshotHandler  *handler.SnapshotAPIHandler
	websocketHandler *handler.WebSocketHandler
	metrics          *metrics.Metrics
	gatherer         prometheus.Gatherer
	security         config.SecurityConfig
	logger           *logger.Logger
}

// NewRouter создает новый router. websocketHandler может быть nil
func NewRouter(
	heartbeatHandler *handler.HeartbeatAPIHandler,
	projectHandler *handler.ProjectAPIHandler,
	snapshotHandler *handler.SnapshotAPIHandler,
	websocketHandler *handler.WebSocketHandler,
	metrics *metrics.Metrics,
	gatherer prometheus.Gatherer,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		heartbeatHandler: heartbeatHandler,
		projectHandler:   projectHandler,
		snapshotHandler:  snapshotHandler,
		websocketHandler: websocketHandler,
		metrics:          metrics,
		gatherer:         gatherer,
		security:         security,
		logger:           logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	authCfg := middleware.AuthConfig{
		Enabled: rt.security.AuthEnabled,
		APIKey:  rt.security.APIKey,
	}
	if rt.metrics != nil {
		authCfg.OnFailure = rt.metrics.AuthFailures.Inc
	}
	auth := middleware.Auth(authCfg, rt.logger)

	api := func(h http.HandlerFunc) http.Handler {
		return middleware.Compression(auth(h))
	}
	route := func(path string, h http.HandlerFunc) {
		rt.mux.Handle("GET "+path, api(h))
	}

	// Health и metrics доступны без ключа для probes и scrape
	rt.mux.HandleFunc("GET /health", rt.heartbeatHandler.Health)
	if rt.gatherer != nil {
		rt.mux.Handle("GET /metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
	}

	route("/api/v1/status", rt.heartbeatHandler.Status)
	route("/api/v1/heartbeat", rt.heartbeatHandler.Heartbeat)
	route("/api/v1/project/completion", rt.projectHandler.Completion)
	route("/api/v1/project/issues", rt.projectHandler.Issues)
	route("/api/v1/agents/activity", rt.projectHandler.Agents)
	route("/api/v1/snapshots", rt.snapshotHandler.History)

	// Короткие пути из первой версии агента
	route("/status", rt.heartbeatHandler.Status)
	route("/project/completion", rt.projectHandler.Completion)
	route("/project/issues", rt.projectHandler.Issues)
	route("/agents/activity", rt.projectHandler.Agents)

	if rt.websocketHandler != nil {
		rt.mux.Handle("GET /ws", auth(http.HandlerFunc(rt.websocketHandler.HandleConnection)))
	}

	rt.mux.HandleFunc("/api/", handler.NotFound)

	// Применяем middleware
	var h http.Handler = rt.mux
	if rt.security.RateLimitRPS > 0 {
		var onDrop func()
		if rt.metrics != nil {
			onDrop = rt.metrics.RateLimitDropped.Inc
		}
		limiter := middleware.NewIPRateLimiter(rt.security.RateLimitRPS, rt.security.RateLimitBurst)
		h = middleware.RateLimit(limiter, onDrop)(h)
	}
	h = middleware.CORS(middleware.NewOriginPolicy(rt.security.AllowedOrigins))(h)
	if rt.metrics != nil {
		h = rt.metrics.Middleware(h)
	}
	h = middleware.Logger(rt.logger)(h)
	h = middleware.RequestID(h)
	h = middleware.Recovery(rt.logger)(h)

	return h
}
