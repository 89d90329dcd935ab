package usecase

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

const jsonlContentType = "application/x-ndjson"

// ArchiveSnapshotLogsConfig параметры архивации
type ArchiveSnapshotLogsConfig struct {
	KeyPrefix string
	SwarmID   string
}

// ArchiveResult итог прохода архивации
type ArchiveResult struct {
	Uploaded int
	Skipped  int
	Failed   int
}

// ArchiveSnapshotLogsUseCase выгружает завершенные суточные журналы в объектное хранилище.
// Текущие сутки не выгружаются, уже выгруженные файлы пропускаются
type ArchiveSnapshotLogsUseCase struct {
	journal port.SnapshotLog
	storage port.ArchiveStorage
	config  ArchiveSnapshotLogsConfig
	now     func() time.Time
	logger  *logger.Logger
}

// NewArchiveSnapshotLogsUseCase создает новый use case
func NewArchiveSnapshotLogsUseCase(
	journal port.SnapshotLog,
	storage port.ArchiveStorage,
	config ArchiveSnapshotLogsConfig,
	logger *logger.Logger,
) *ArchiveSnapshotLogsUseCase {
	config.KeyPrefix = strings.Trim(config.KeyPrefix, "/")
	return &ArchiveSnapshotLogsUseCase{
		journal: journal,
		storage: storage,
		config:  config,
		now:     time.Now,
		logger:  logger,
	}
}

// Execute выполняет один проход архивации. Ошибка отдельного файла не прерывает проход
func (uc *ArchiveSnapshotLogsUseCase) Execute(ctx context.Context) (ArchiveResult, error) {
	files, err := uc.journal.Files()
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("failed to list snapshot logs: %w", err)
	}

	today := uc.now().UTC().Truncate(24 * time.Hour)
	var result ArchiveResult

	for _, file := range files {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if !file.Day.Before(today) {
			continue
		}

		key := uc.objectKey(file)
		exists, err := uc.storage.Exists(ctx, key)
		if err != nil {
			uc.logger.Warn("Failed to check archived log", "key", key, "error", err.Error())
			result.Failed++
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		body, err := uc.journal.ReadFile(file)
		if err != nil {
			uc.logger.Warn("Failed to read snapshot log", "path", file.Path, "error", err.Error())
			result.Failed++
			continue
		}

		if err := uc.storage.PutObject(ctx, key, jsonlContentType, body); err != nil {
			uc.logger.Warn("Failed to upload snapshot log", "key", key, "error", err.Error())
			result.Failed++
			continue
		}
		result.Uploaded++
		uc.logger.Info("Snapshot log archived", "key", key, "bytes", len(body))
	}

	return result, nil
}

// objectKey строит ключ вида <prefix>/<swarm_id>/YYYY/MM/<file>
func (uc *ArchiveSnapshotLogsUseCase) objectKey(file port.SnapshotLogFile) string {
	parts := make([]string, 0, 5)
	if uc.config.KeyPrefix != "" {
		parts = append(parts, uc.config.KeyPrefix)
	}
	if uc.config.SwarmID != "" {
		parts = append(parts, uc.config.SwarmID)
	}
	parts = append(parts,
		file.Day.Format("2006"),
		file.Day.Format("01"),
		filepath.Base(file.Path),
	)
	return path.Join(parts...)
}
