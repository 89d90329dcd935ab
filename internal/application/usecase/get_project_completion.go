package usecase

import (
	"context"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/service"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

// GetProjectCompletionUseCase считает прогресс, скорость и прогноз по закэшированным задачам
type GetProjectCompletionUseCase struct {
	issues port.IssueProvider
	engine *service.ProjectForecastEngine
	now    func() time.Time
	logger *logger.Logger
}

// NewGetProjectCompletionUseCase создает новый use case. issues может быть nil
func NewGetProjectCompletionUseCase(
	issues port.IssueProvider,
	engine *service.ProjectForecastEngine,
	logger *logger.Logger,
) *GetProjectCompletionUseCase {
	return &GetProjectCompletionUseCase{
		issues: issues,
		engine: engine,
		now:    time.Now,
		logger: logger,
	}
}

// Execute выполняет расчет. Без репозитория возвращает пустой отчет с enabled=false
func (uc *GetProjectCompletionUseCase) Execute(ctx context.Context) dto.ProjectCompletionDTO {
	now := uc.now().UTC()

	if uc.issues == nil || uc.issues.Repository() == "" {
		return dto.ProjectCompletionDTO{
			Enabled: false,
			Project: dto.FromProjectReport(service.EmptyProjectReport(uc.engine.WindowDays(), now)),
		}
	}

	report := uc.engine.Analyze(uc.issues.GetIssues(ctx), now)
	uc.logger.Debug("Project report calculated",
		"total", report.Completion.Total,
		"flagged", len(report.Flags),
	)

	return dto.ProjectCompletionDTO{
		Repository: uc.issues.Repository(),
		Enabled:    true,
		Project:    dto.FromProjectReport(report),
		Flagged:    len(report.Flags),
	}
}
