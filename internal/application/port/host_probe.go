package port

import (
	"context"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
)

// ResourceProbe снимает загрузку ресурсов хоста
type ResourceProbe interface {
	Resources(ctx context.Context) (dto.ResourceMetricsDTO, error)
}

// HostInfoProbe возвращает сведения о хосте
type HostInfoProbe interface {
	SystemInfo(ctx context.Context) (dto.SystemInfoDTO, error)
}

// AgentActivitySource находит процессы агентов на хосте
type AgentActivitySource interface {
	Activity(ctx context.Context) ([]dto.AgentActivityDTO, error)
}
