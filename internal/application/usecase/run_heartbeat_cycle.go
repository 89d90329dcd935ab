package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

// SnapshotCollector источник снимков для цикла
type SnapshotCollector interface {
	Execute(ctx context.Context) *dto.MetricsSnapshotDTO
}

// CycleSinks необязательные получатели снимка; nil поля пропускаются
type CycleSinks struct {
	Notifier port.NotificationService
	Events   port.SnapshotEventPublisher
	Metrics  port.MetricsPublisher
}

// CycleResult итог одного цикла heartbeat
type CycleResult struct {
	Snapshot  *dto.MetricsSnapshotDTO
	Delivered bool
	Duration  time.Duration
}

// RunHeartbeatCycleUseCase выполняет один цикл: сбор, доставка, запись в журнал
type RunHeartbeatCycleUseCase struct {
	collector SnapshotCollector
	delivery  port.DeliveryClient
	journal   port.SnapshotLog
	sinks     CycleSinks
	telemetry port.Telemetry
	latest    atomic.Pointer[dto.MetricsSnapshotDTO]
	logger    *logger.Logger
}

// NewRunHeartbeatCycleUseCase создает новый use case
func NewRunHeartbeatCycleUseCase(
	collector SnapshotCollector,
	delivery port.DeliveryClient,
	journal port.SnapshotLog,
	sinks CycleSinks,
	telemetry port.Telemetry,
	logger *logger.Logger,
) *RunHeartbeatCycleUseCase {
	if telemetry == nil {
		telemetry = port.NopTelemetry{}
	}
	return &RunHeartbeatCycleUseCase{
		collector: collector,
		delivery:  delivery,
		journal:   journal,
		sinks:     sinks,
		telemetry: telemetry,
		logger:    logger,
	}
}

// Execute выполняет цикл. Запись в журнал происходит независимо от результата доставки
func (uc *RunHeartbeatCycleUseCase) Execute(ctx context.Context) CycleResult {
	started := time.Now()

	// 1. Сбор
	snapshot := uc.collector.Execute(ctx)
	uc.latest.Store(snapshot)

	// 2. Доставка
	delivered := uc.delivery.Send(ctx, snapshot)
	if !delivered {
		uc.logger.Warn("Heartbeat not delivered", "swarm_id", snapshot.SwarmID)
	}

	// 3. Журнал
	uc.journal.Append(snapshot)

	// 4. Дополнительные получатели
	uc.fanOut(ctx, snapshot)

	duration := time.Since(started)
	uc.telemetry.CycleCompleted(duration, delivered)
	uc.logger.Info("Heartbeat cycle completed",
		"delivered", delivered,
		"duration_ms", duration.Milliseconds(),
		"agents", snapshot.Agents.Total,
	)

	return CycleResult{Snapshot: snapshot, Delivered: delivered, Duration: duration}
}

// Latest возвращает снимок последнего цикла или nil
func (uc *RunHeartbeatCycleUseCase) Latest() *dto.MetricsSnapshotDTO {
	return uc.latest.Load()
}

func (uc *RunHeartbeatCycleUseCase) fanOut(ctx context.Context, snapshot *dto.MetricsSnapshotDTO) {
	if uc.sinks.Notifier != nil {
		uc.sinks.Notifier.Broadcast(snapshot)
		uc.logger.Debug("Snapshot broadcasted to clients", "client_count", uc.sinks.Notifier.ClientCount())
	}

	if uc.sinks.Events != nil {
		if err := uc.sinks.Events.PublishSnapshot(ctx, snapshot); err != nil {
			uc.logger.Warn("Failed to publish snapshot event", "error", err.Error())
		}
	}

	if uc.sinks.Metrics != nil {
		if err := uc.sinks.Metrics.PublishBatch(ctx, SnapshotMetrics(snapshot)); err != nil {
			uc.logger.Warn("Failed to publish snapshot metrics", "error", err.Error())
		}
	}
}

// SnapshotMetrics раскладывает снимок на отдельные метрики для внешних систем.
// Проектные метрики добавляются только при включенной интеграции с GitHub
func SnapshotMetrics(snapshot *dto.MetricsSnapshotDTO) []*entity.Metric {
	type gauge struct {
		metricType valueobject.MetricType
		name       string
		value      float64
		unit       string
	}

	gauges := []gauge{
		{valueobject.Resource, "cpu_percent", snapshot.Resources.CPUPercent, valueobject.UnitPercent},
		{valueobject.Resource, "memory_percent", snapshot.Resources.MemoryPercent, valueobject.UnitPercent},
		{valueobject.Resource, "disk_percent", snapshot.Resources.DiskPercent, valueobject.UnitPercent},
		{valueobject.Agents, "active_agents", float64(snapshot.Agents.Active), valueobject.UnitCount},
		{valueobject.Agents, "failed_agents", float64(snapshot.Agents.Failed), valueobject.UnitCount},
	}
	if snapshot.GitHub.Enabled {
		p := snapshot.Project
		gauges = append(gauges,
			gauge{valueobject.Project, "completion_percentage", p.CompletionPercentage, valueobject.UnitPercent},
			gauge{valueobject.Project, "issues_per_day", p.Velocity.IssuesPerDay, valueobject.UnitIssuesPerDay},
			gauge{valueobject.Project, "flagged_issues", float64(len(p.FlaggedIssues)), valueobject.UnitCount},
		)
	}

	metrics := make([]*entity.Metric, 0, len(gauges))
	for _, g := range gauges {
		value, err := valueobject.NewMetricValue(g.value, g.unit)
		if err != nil {
			continue
		}
		metric, err := entity.NewMetric(g.metricType, g.name, value, snapshot.Timestamp)
		if err != nil {
			continue
		}
		metrics = append(metrics, metric)
	}
	return metrics
}
