package port

import "github.com/dreschagin/swarm-heartbeat/internal/application/dto"

// NotificationService рассылает снимки подключенным клиентам (WebSocket Hub)
type NotificationService interface {
	// Broadcast отправляет снимок всем подключенным клиентам
	Broadcast(snapshot *dto.MetricsSnapshotDTO)

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
