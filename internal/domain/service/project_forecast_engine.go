package service

import (
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
)

// ProjectReport полный результат анализа списка задач
type ProjectReport struct {
	// Issues задачи, прошедшие валидацию; по ним посчитаны все остальные поля
	Issues      []entity.Issue
	Completion  valueobject.CompletionMetrics
	Velocity    valueobject.VelocityWindow
	Forecast    valueobject.Forecast
	Flags       []entity.InterventionFlag
	GeneratedAt time.Time
}

// EmptyProjectReport отчет для проекта без задач или без настроенного репозитория
func EmptyProjectReport(windowDays int, now time.Time) ProjectReport {
	return ProjectReport{
		Issues:      []entity.Issue{},
		Velocity:    valueobject.EmptyVelocityWindow(windowDays),
		Forecast:    valueobject.UnknownForecast(),
		Flags:       []entity.InterventionFlag{},
		GeneratedAt: now,
	}
}

// ProjectForecastEngine превращает список задач в прогресс, скорость, прогноз и флаги (Domain Service)
// Чистые вычисления без I/O; текущее время передается явно
type ProjectForecastEngine struct {
	windowDays int
	thresholds InterventionThresholds
	validator  *IssueValidator
}

// NewProjectForecastEngine создает движок анализа
func NewProjectForecastEngine(windowDays int, thresholds InterventionThresholds) *ProjectForecastEngine {
	if windowDays < 1 {
		windowDays = DefaultVelocityWindowDays
	}
	return &ProjectForecastEngine{
		windowDays: windowDays,
		thresholds: thresholds,
		validator:  NewIssueValidator(),
	}
}

// WindowDays возвращает длину окна скорости
func (e *ProjectForecastEngine) WindowDays() int {
	return e.windowDays
}

// Analyze рассчитывает полный отчет. Некорректные записи пропускаются
func (e *ProjectForecastEngine) Analyze(issues []entity.Issue, now time.Time) ProjectReport {
	valid, _ := e.validator.Filter(issues)
	if len(valid) == 0 {
		return EmptyProjectReport(e.windowDays, now)
	}

	completion := CalculateCompletion(valid)
	velocity := CalculateVelocity(valid, e.windowDays, now)

	return ProjectReport{
		Issues:      valid,
		Completion:  completion,
		Velocity:    velocity,
		Forecast:    ForecastCompletion(completion, velocity, now),
		Flags:       DetectInterventions(valid, e.thresholds, now),
		GeneratedAt: now,
	}
}

// Flag применяет только правила вмешательства
func (e *ProjectForecastEngine) Flag(issues []entity.Issue, now time.Time) []entity.InterventionFlag {
	valid, _ := e.validator.Filter(issues)
	return DetectInterventions(valid, e.thresholds, now)
}
