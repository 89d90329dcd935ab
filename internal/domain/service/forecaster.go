package service

import (
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
)

// ForecastCompletion прогнозирует дату завершения по текущей скорости.
// При нулевой скорости прогноз неизвестен
func ForecastCompletion(
	completion valueobject.CompletionMetrics,
	velocity valueobject.VelocityWindow,
	now time.Time,
) valueobject.Forecast {
	perDay := velocity.IssuesPerDay()
	if perDay <= 0 {
		return valueobject.UnknownForecast()
	}

	remaining := completion.Remaining()
	if remaining < 0 {
		remaining = 0
	}

	days := float64(remaining) / perDay
	estimated := now.Add(time.Duration(days * float64(24*time.Hour)))

	return valueobject.NewComputedForecast(days, estimated, velocity.Trend().Confidence())
}
