package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

// GetAgentActivityUseCase возвращает процессы агентов на хосте
type GetAgentActivityUseCase struct {
	source port.AgentActivitySource
	logger *logger.Logger
}

// NewGetAgentActivityUseCase создает новый use case
func NewGetAgentActivityUseCase(source port.AgentActivitySource, logger *logger.Logger) *GetAgentActivityUseCase {
	return &GetAgentActivityUseCase{
		source: source,
		logger: logger,
	}
}

// Execute выполняет обход таблицы процессов
func (uc *GetAgentActivityUseCase) Execute(ctx context.Context) (dto.AgentActivityListDTO, error) {
	agents, err := uc.source.Activity(ctx)
	if err != nil {
		uc.logger.Error("Failed to list agent processes", err)
		return dto.AgentActivityListDTO{}, fmt.Errorf("failed to list agent processes: %w", err)
	}
	if agents == nil {
		agents = []dto.AgentActivityDTO{}
	}

	return dto.AgentActivityListDTO{
		Agents:  agents,
		Summary: dto.SummarizeAgents(agents),
	}, nil
}
