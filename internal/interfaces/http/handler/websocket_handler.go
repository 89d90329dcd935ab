package handler

import (
	"net/http"
	"strings"

	wsInfra "github.com/dreschagin/swarm-heartbeat/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/swarm-heartbeat/internal/interfaces/http/middleware"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
	"github.com/gorilla/websocket"
)

// WebSocketHandler обрабатывает WebSocket connections
type WebSocketHandler struct {
	hub      *wsInfra.Hub
	origins  middleware.OriginPolicy
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler создает новый handler
func NewWebSocketHandler(hub *wsInfra.Hub, origins middleware.OriginPolicy, logger *logger.Logger) *WebSocketHandler {
	handler := &WebSocketHandler{
		hub:     hub,
		origins: origins,
		logger:  logger,
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     handler.checkOrigin,
	}

	return handler
}

// checkOrigin пропускает клиентов без Origin (не браузеры) и разрешенные origin
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	return h.origins.Allowed(origin)
}

// HandleConnection обрабатывает новое WebSocket соединение
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err.Error(), "remote_addr", r.RemoteAddr)
		return
	}

	// Запускаем pumps в отдельных goroutines
	wsInfra.NewClient(h.hub, conn, h.logger).Serve()
}
