package service

import (
	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
)

// CalculateCompletion считает прогресс по списку задач.
// Ready = открытые - в работе - заблокированные и может уйти в минус,
// если у задачи есть метки из обоих наборов
func CalculateCompletion(issues []entity.Issue) valueobject.CompletionMetrics {
	var m valueobject.CompletionMetrics
	open := 0

	for _, issue := range issues {
		m.Total++
		if issue.IsClosed() {
			m.Completed++
			continue
		}
		if !issue.IsOpen() {
			continue
		}
		open++
		if issue.HasAnyLabel(entity.InProgressLabels) {
			m.InProgress++
		}
		if issue.HasAnyLabel(entity.BlockedLabels) {
			m.Blocked++
		}
	}

	m.Ready = open - m.InProgress - m.Blocked
	return m
}
