package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dreschagin/swarm-heartbeat/internal/application/usecase"
	"github.com/dreschagin/swarm-heartbeat/internal/interfaces/http/middleware"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

// ProjectAPIHandler обрабатывает запросы по проекту и агентам
type ProjectAPIHandler struct {
	completionUC *usecase.GetProjectCompletionUseCase
	listIssuesUC *usecase.ListIssuesUseCase
	agentsUC     *usecase.GetAgentActivityUseCase
	logger       *logger.Logger
}

// NewProjectAPIHandler создает новый handler
func NewProjectAPIHandler(
	completionUC *usecase.GetProjectCompletionUseCase,
	listIssuesUC *usecase.ListIssuesUseCase,
	agentsUC *usecase.GetAgentActivityUseCase,
	logger *logger.Logger,
) *ProjectAPIHandler {
	return &ProjectAPIHandler{
		completionUC: completionUC,
		listIssuesUC: listIssuesUC,
		agentsUC:     agentsUC,
		logger:       logger,
	}
}

// Completion возвращает процент выполнения, скорость и прогноз
func (h *ProjectAPIHandler) Completion(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.completionUC.Execute(r.Context()))
}

// Issues возвращает страницу задач.
// Параметры: status (open|closed), flagged=true, limit, offset
func (h *ProjectAPIHandler) Issues(w http.ResponseWriter, r *http.Request) {
	query, err := parseIssuesQuery(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.listIssuesUC.Execute(r.Context(), query)
	if err != nil {
		writeUseCaseError(w, err, h.logger, "Failed to list issues")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, list)
}

// Agents возвращает процессы агентов со сводкой
func (h *ProjectAPIHandler) Agents(w http.ResponseWriter, r *http.Request) {
	activity, err := h.agentsUC.Execute(r.Context())
	if err != nil {
		writeUseCaseError(w, err, h.logger, "Failed to scan agent processes")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, activity)
}

func parseIssuesQuery(r *http.Request) (usecase.ListIssuesQuery, error) {
	values := r.URL.Query()
	query := usecase.ListIssuesQuery{Status: values.Get("status")}

	if raw := values.Get("flagged"); raw != "" {
		flagged, err := strconv.ParseBool(raw)
		if err != nil {
			return query, fmt.Errorf("invalid flagged parameter %q", raw)
		}
		query.FlaggedOnly = flagged
	}

	var err error
	if query.Limit, err = intParam(values.Get("limit"), "limit"); err != nil {
		return query, err
	}
	if query.Offset, err = intParam(values.Get("offset"), "offset"); err != nil {
		return query, err
	}
	return query, nil
}

// intParam парсит неотрицательное целое; пустое значение дает 0
func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s parameter %q", name, raw)
	}
	return v, nil
}
