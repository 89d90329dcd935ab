package service

import (
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
)

// DefaultVelocityWindowDays длина окна скорости по умолчанию
const DefaultVelocityWindowDays = 7

// CalculateVelocity раскладывает закрытые за последние days суток задачи по дням.
// Задачи без closed_at или за пределами окна не учитываются
func CalculateVelocity(issues []entity.Issue, days int, now time.Time) valueobject.VelocityWindow {
	if days < 1 {
		days = DefaultVelocityWindowDays
	}

	window, err := valueobject.NewTrailingDays(now, days)
	if err != nil {
		return valueobject.EmptyVelocityWindow(days)
	}

	counts := make([]int, days)
	for _, issue := range issues {
		if !issue.IsClosed() || issue.ClosedAt == nil {
			continue
		}
		offset, ok := window.DayOffset(*issue.ClosedAt)
		if !ok {
			continue
		}
		counts[days-1-offset]++
	}

	velocity, err := valueobject.NewVelocityWindow(counts)
	if err != nil {
		return valueobject.EmptyVelocityWindow(days)
	}
	return velocity
}
