package cloudwatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/awsclient"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

const (
	maxMetricsPerRequest = 1000
	maxRetries           = 3
	initialBackoff       = 100 * time.Millisecond
)

// putMetricDataAPI is the subset of the CloudWatch client the publisher uses.
type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsPublisherConfig holds configuration for CloudWatch gauge publishing.
type MetricsPublisherConfig struct {
	AWS       awsclient.Settings
	Namespace string
	// SwarmID is attached to every datum as the SwarmId dimension.
	SwarmID       string
	BufferSize    int
	FlushInterval time.Duration
}

// MetricsPublisher buffers snapshot gauges and ships them with PutMetricData.
// Implements port.MetricsPublisher.
type MetricsPublisher struct {
	client    putMetricDataAPI
	namespace string
	swarmID   string
	log       *logger.Logger

	mu         sync.Mutex
	buffer     []*entity.Metric
	bufferSize int

	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewMetricsPublisher creates the publisher and starts its periodic flush.
func NewMetricsPublisher(ctx context.Context, cfg MetricsPublisherConfig, log *logger.Logger) (*MetricsPublisher, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}

	awsCfg, err := awsclient.LoadConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}

	p := newMetricsPublisher(cloudwatch.NewFromConfig(awsCfg), cfg, log)
	p.start()
	return p, nil
}

func newMetricsPublisher(client putMetricDataAPI, cfg MetricsPublisherConfig, log *logger.Logger) *MetricsPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Minute
	}
	return &MetricsPublisher{
		client:        client,
		namespace:     cfg.Namespace,
		swarmID:       cfg.SwarmID,
		log:           log.With("component", "cloudwatch_metrics"),
		buffer:        make([]*entity.Metric, 0, cfg.BufferSize),
		bufferSize:    cfg.BufferSize,
		flushInterval: cfg.FlushInterval,
		stopCh:        make(chan struct{}),
	}
}

func (p *MetricsPublisher) start() {
	p.wg.Add(1)
	go p.flushLoop()
}

// PublishBatch buffers the gauges of one snapshot; a full buffer is flushed inline.
func (p *MetricsPublisher) PublishBatch(ctx context.Context, metrics []*entity.Metric) error {
	if len(metrics) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer = append(p.buffer, metrics...)
	if len(p.buffer) >= p.bufferSize {
		if err := p.flushLocked(ctx); err != nil {
			return fmt.Errorf("failed to flush buffer: %w", err)
		}
	}
	return nil
}

// Flush forces publication of all buffered gauges.
func (p *MetricsPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(ctx)
}

// Close stops the background flush and publishes what is left.
func (p *MetricsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.wg.Wait()
	return p.Flush(ctx)
}

func (p *MetricsPublisher) flushLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := p.Flush(ctx); err != nil {
				p.log.Warn("CloudWatch metrics flush failed, will retry", "error", err.Error())
			}
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// flushLocked publishes the buffer; the caller holds p.mu. On failure the buffer
// is kept so the next flush retries it.
func (p *MetricsPublisher) flushLocked(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	data := make([]types.MetricDatum, 0, len(p.buffer))
	for _, metric := range p.buffer {
		data = append(data, p.toDatum(metric))
	}

	for start := 0; start < len(data); start += maxMetricsPerRequest {
		end := min(start+maxMetricsPerRequest, len(data))
		if err := p.putWithRetry(ctx, data[start:end]); err != nil {
			// Chunks already accepted are not resent
			p.buffer = p.buffer[start:]
			return err
		}
	}

	p.log.Debug("CloudWatch metrics flushed", "count", len(data))
	p.buffer = p.buffer[:0]
	return nil
}

func (p *MetricsPublisher) putWithRetry(ctx context.Context, data []types.MetricDatum) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data,
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("put metric data failed after %d attempts: %w", maxRetries, lastErr)
}

// toDatum maps a snapshot gauge to a datum named after the gauge, with the swarm
// and the gauge group as dimensions.
func (p *MetricsPublisher) toDatum(metric *entity.Metric) types.MetricDatum {
	dims := map[string]string{"MetricGroup": metric.Type().String()}
	if p.swarmID != "" {
		dims["SwarmId"] = p.swarmID
	}

	names := make([]string, 0, len(dims))
	for name := range dims {
		names = append(names, name)
	}
	sort.Strings(names)

	dimensions := make([]types.Dimension, 0, len(names))
	for _, name := range names {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(name),
			Value: aws.String(dims[name]),
		})
	}

	return types.MetricDatum{
		MetricName: aws.String(metric.Name()),
		Value:      aws.Float64(metric.Value().Raw()),
		Unit:       mapUnit(metric.Value().Unit()),
		Timestamp:  aws.Time(metric.CollectedAt()),
		Dimensions: dimensions,
	}
}

func mapUnit(unit string) types.StandardUnit {
	switch unit {
	case valueobject.UnitPercent:
		return types.StandardUnitPercent
	case valueobject.UnitCount:
		return types.StandardUnitCount
	default:
		return types.StandardUnitNone
	}
}
