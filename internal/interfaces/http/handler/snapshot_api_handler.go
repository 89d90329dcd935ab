package handler

import (
	"net/http"

	"github.com/dreschagin/swarm-heartbeat/internal/application/usecase"
	"github.com/dreschagin/swarm-heartbeat/internal/interfaces/http/middleware"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

// SnapshotAPIHandler отдает снимки из локального журнала
type SnapshotAPIHandler struct {
	historyUC *usecase.ReadSnapshotHistoryUseCase
	logger    *logger.Logger
}

// NewSnapshotAPIHandler создает новый handler
func NewSnapshotAPIHandler(historyUC *usecase.ReadSnapshotHistoryUseCase, logger *logger.Logger) *SnapshotAPIHandler {
	return &SnapshotAPIHandler{historyUC: historyUC, logger: logger}
}

// History возвращает снимки за сутки: ?date=YYYY-MM-DD&limit=N
func (h *SnapshotAPIHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	history, err := h.historyUC.Execute(r.Context(), usecase.ReadSnapshotHistoryQuery{
		Date:  r.URL.Query().Get("date"),
		Limit: limit,
	})
	if err != nil {
		writeUseCaseError(w, err, h.logger, "Failed to read snapshot log")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, history)
}
