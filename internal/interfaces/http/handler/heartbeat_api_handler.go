package handler

import (
	"net/http"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/application/usecase"
	"github.com/dreschagin/swarm-heartbeat/internal/interfaces/http/middleware"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

// HeartbeatStatusSource состояние планировщика
type HeartbeatStatusSource interface {
	Status() dto.HeartbeatStatusDTO
}

// HealthDTO ответ /health
type HealthDTO struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	SwarmID   string    `json:"swarm_id"`
}

// HeartbeatAPIHandler обрабатывает запросы о состоянии агента
type HeartbeatAPIHandler struct {
	swarmID      string
	getCurrentUC *usecase.GetCurrentSnapshotUseCase
	scheduler    HeartbeatStatusSource
	now          func() time.Time
	logger       *logger.Logger
}

// NewHeartbeatAPIHandler создает новый handler
func NewHeartbeatAPIHandler(
	swarmID string,
	getCurrentUC *usecase.GetCurrentSnapshotUseCase,
	scheduler HeartbeatStatusSource,
	logger *logger.Logger,
) *HeartbeatAPIHandler {
	return &HeartbeatAPIHandler{
		swarmID:      swarmID,
		getCurrentUC: getCurrentUC,
		scheduler:    scheduler,
		now:          time.Now,
		logger:       logger,
	}
}

// Health отвечает на проверку живости, без авторизации
func (h *HeartbeatAPIHandler) Health(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, HealthDTO{
		Status:    "healthy",
		Timestamp: h.now().UTC(),
		SwarmID:   h.swarmID,
	})
}

// Status возвращает снимок последнего цикла
func (h *HeartbeatAPIHandler) Status(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.getCurrentUC.Execute(r.Context()))
}

// Heartbeat возвращает состояние планировщика
func (h *HeartbeatAPIHandler) Heartbeat(w http.ResponseWriter, _ *http.Request) {
	if h.scheduler == nil {
		middleware.WriteJSON(w, http.StatusOK, dto.HeartbeatStatusDTO{SwarmID: h.swarmID})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.scheduler.Status())
}
