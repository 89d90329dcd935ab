package port

import (
	"context"
	"errors"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
)

// DeliveryClient доставляет снимок удаленному коллектору
type DeliveryClient interface {
	// Send возвращает true, если коллектор принял снимок
	Send(ctx context.Context, snapshot *dto.MetricsSnapshotDTO) bool
}

// SnapshotLog локальный журнал снимков, один файл на сутки UTC
type SnapshotLog interface {
	// Append дописывает снимок; ошибки логируются и не возвращаются
	Append(snapshot *dto.MetricsSnapshotDTO)

	// ReadDay читает до limit последних снимков за сутки day
	ReadDay(day time.Time, limit int) ([]dto.MetricsSnapshotDTO, error)

	// Files возвращает файлы журнала с датой каждого
	Files() ([]SnapshotLogFile, error)

	// ReadFile возвращает содержимое файла журнала целиком
	ReadFile(file SnapshotLogFile) ([]byte, error)
}

// SnapshotLogFile файл журнала за одни сутки
type SnapshotLogFile struct {
	Path string
	Day  time.Time
}

// ErrSnapshotsNotFound журнала за запрошенные сутки нет
var ErrSnapshotsNotFound = errors.New("no snapshots for the requested day")
