package handler

import (
	"errors"
	"net/http"

	"github.com/dreschagin/swarm-heartbeat/internal/application/usecase"
	"github.com/dreschagin/swarm-heartbeat/internal/interfaces/http/middleware"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

// writeUseCaseError отображает ошибку use case в HTTP статус
func writeUseCaseError(w http.ResponseWriter, err error, log *logger.Logger, msg string) {
	switch {
	case errors.Is(err, usecase.ErrInvalidQuery):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, usecase.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	default:
		log.Error(msg, err)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}

// NotFound ответ для неизвестных маршрутов под /api
func NotFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, http.StatusNotFound, "route not found: "+r.URL.Path)
}
