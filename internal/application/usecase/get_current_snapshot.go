package usecase

import (
	"context"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

// LatestSnapshotSource хранит снимок последнего цикла
type LatestSnapshotSource interface {
	Latest() *dto.MetricsSnapshotDTO
}

// GetCurrentSnapshotUseCase возвращает снимок последнего цикла,
// а если циклов еще не было, собирает свежий
type GetCurrentSnapshotUseCase struct {
	latest    LatestSnapshotSource
	collector SnapshotCollector
	logger    *logger.Logger
}

// NewGetCurrentSnapshotUseCase создает новый use case
func NewGetCurrentSnapshotUseCase(
	latest LatestSnapshotSource,
	collector SnapshotCollector,
	logger *logger.Logger,
) *GetCurrentSnapshotUseCase {
	return &GetCurrentSnapshotUseCase{
		latest:    latest,
		collector: collector,
		logger:    logger,
	}
}

// Execute выполняет получение текущего снимка
func (uc *GetCurrentSnapshotUseCase) Execute(ctx context.Context) *dto.MetricsSnapshotDTO {
	if uc.latest != nil {
		if snapshot := uc.latest.Latest(); snapshot != nil {
			return snapshot
		}
	}

	uc.logger.Debug("No heartbeat cycle yet, collecting fresh snapshot")
	return uc.collector.Execute(ctx)
}
