package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/service"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

// CollectMetricsUseCase собирает снимок хоста и проекта за один цикл.
// Никогда не возвращает ошибку: сбой отдельного источника обнуляет только его раздел
type CollectMetricsUseCase struct {
	swarmID   string
	resources port.ResourceProbe
	host      port.HostInfoProbe
	agents    port.AgentActivitySource
	issues    port.IssueProvider
	engine    *service.ProjectForecastEngine
	now       func() time.Time
	logger    *logger.Logger
}

// NewCollectMetricsUseCase создает новый use case. issues может быть nil,
// тогда интеграция с GitHub выключена
func NewCollectMetricsUseCase(
	swarmID string,
	resources port.ResourceProbe,
	host port.HostInfoProbe,
	agents port.AgentActivitySource,
	issues port.IssueProvider,
	engine *service.ProjectForecastEngine,
	logger *logger.Logger,
) *CollectMetricsUseCase {
	return &CollectMetricsUseCase{
		swarmID:   swarmID,
		resources: resources,
		host:      host,
		agents:    agents,
		issues:    issues,
		engine:    engine,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock подменяет источник времени (для тестов)
func (uc *CollectMetricsUseCase) WithClock(now func() time.Time) *CollectMetricsUseCase {
	uc.now = now
	return uc
}

// Execute собирает снимок; источники опрашиваются параллельно
func (uc *CollectMetricsUseCase) Execute(ctx context.Context) *dto.MetricsSnapshotDTO {
	now := uc.now().UTC().Truncate(time.Second)
	snapshot := &dto.MetricsSnapshotDTO{
		SwarmID:   uc.swarmID,
		Timestamp: now,
		GitHub:    dto.GitHubSummaryDTO{Enabled: false},
		Project:   dto.FromProjectReport(service.EmptyProjectReport(uc.engine.WindowDays(), now)),
	}

	// Каждая горутина пишет только в свой раздел снимка
	var wg sync.WaitGroup
	run := func(section string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					uc.logger.Error("Collector panicked", fmt.Errorf("%v", r), "section", section)
				}
			}()
			fn()
		}()
	}

	var resources dto.ResourceMetricsDTO
	var system dto.SystemInfoDTO
	var agents dto.AgentSummaryDTO
	var github dto.GitHubSummaryDTO
	var project *dto.ProjectMetricsDTO

	run("resources", func() {
		res, err := uc.resources.Resources(ctx)
		if err != nil {
			uc.logger.Warn("Resource metrics degraded", "error", err.Error())
		}
		resources = res
	})
	run("system", func() {
		info, err := uc.host.SystemInfo(ctx)
		if err != nil {
			uc.logger.Warn("System info unavailable", "error", err.Error())
		}
		system = info
	})
	run("agents", func() {
		list, err := uc.agents.Activity(ctx)
		if err != nil {
			uc.logger.Warn("Agent activity unavailable", "error", err.Error())
			return
		}
		agents = dto.SummarizeAgents(list)
	})
	run("project", func() {
		if !uc.githubEnabled() {
			return
		}
		issues := uc.issues.GetIssues(ctx)
		report := uc.engine.Analyze(issues, now)
		metrics := dto.FromProjectReport(report)
		project = &metrics
		github = summarizeIssues(uc.issues.Repository(), report.Issues, len(report.Flags))
	})

	wg.Wait()

	snapshot.Resources = resources
	snapshot.System = system
	snapshot.Agents = agents
	if project != nil {
		snapshot.GitHub = github
		snapshot.Project = *project
	}

	uc.logger.Debug("Snapshot collected",
		"cpu", resources.CPUPercent,
		"agents", agents.Total,
		"github", snapshot.GitHub.Enabled,
	)
	return snapshot
}

func (uc *CollectMetricsUseCase) githubEnabled() bool {
	return uc.issues != nil && uc.issues.Repository() != ""
}

func summarizeIssues(repository string, issues []entity.Issue, flagged int) dto.GitHubSummaryDTO {
	summary := dto.GitHubSummaryDTO{
		Enabled:       true,
		Repository:    repository,
		TotalIssues:   len(issues),
		FlaggedIssues: flagged,
	}
	for _, issue := range issues {
		if issue.IsClosed() {
			summary.ClosedIssues++
		} else {
			summary.OpenIssues++
		}
	}
	return summary
}
