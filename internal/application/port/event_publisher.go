package port

import (
	"context"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
)

// SnapshotEventPublisher публикует снимки в брокер сообщений
type SnapshotEventPublisher interface {
	// PublishSnapshot отправляет снимок цикла подписчикам
	PublishSnapshot(ctx context.Context, snapshot *dto.MetricsSnapshotDTO) error

	// Close закрывает соединение с брокером
	Close() error
}
