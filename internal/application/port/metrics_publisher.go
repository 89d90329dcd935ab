package port

import (
	"context"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
)

// MetricsPublisher publishes per-cycle gauges to an external metrics platform.
type MetricsPublisher interface {
	// PublishBatch buffers the gauges of one snapshot.
	PublishBatch(ctx context.Context, metrics []*entity.Metric) error

	// Flush forces publication of buffered gauges. Called on shutdown.
	Flush(ctx context.Context) error
}
