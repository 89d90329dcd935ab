package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1440
)

// ReadSnapshotHistoryQuery параметры чтения журнала
type ReadSnapshotHistoryQuery struct {
	// Date сутки в формате YYYY-MM-DD (UTC); пустая строка означает сегодня
	Date  string
	Limit int
}

// ReadSnapshotHistoryUseCase читает локальный журнал снимков
type ReadSnapshotHistoryUseCase struct {
	journal port.SnapshotLog
	now     func() time.Time
	logger  *logger.Logger
}

// NewReadSnapshotHistoryUseCase создает новый use case
func NewReadSnapshotHistoryUseCase(journal port.SnapshotLog, logger *logger.Logger) *ReadSnapshotHistoryUseCase {
	return &ReadSnapshotHistoryUseCase{
		journal: journal,
		now:     time.Now,
		logger:  logger,
	}
}

// Execute выполняет чтение
func (uc *ReadSnapshotHistoryUseCase) Execute(_ context.Context, query ReadSnapshotHistoryQuery) (dto.SnapshotHistoryDTO, error) {
	day := uc.now().UTC()
	if query.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", query.Date, time.UTC)
		if err != nil {
			return dto.SnapshotHistoryDTO{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidQuery)
		}
		day = parsed
	}

	limit := query.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	snapshots, err := uc.journal.ReadDay(day, limit)
	if errors.Is(err, port.ErrSnapshotsNotFound) {
		return dto.SnapshotHistoryDTO{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if err != nil {
		uc.logger.Error("Failed to read snapshot log", err, "date", day.Format("2006-01-02"))
		return dto.SnapshotHistoryDTO{}, fmt.Errorf("failed to read snapshot log: %w", err)
	}

	return dto.SnapshotHistoryDTO{
		Date:      day.Format("2006-01-02"),
		Count:     len(snapshots),
		Snapshots: snapshots,
	}, nil
}
