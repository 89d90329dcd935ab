package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/awsclient"
)

const (
	maxLogEventsPerRequest = 10000
	maxLogEventSize        = 256000
	// Entries beyond this many buffered batches are dropped until a flush succeeds.
	maxBufferedBatches = 20
)

type logsAPI interface {
	PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
	CreateLogGroup(ctx context.Context, in *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, in *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
}

// LogsPublisherConfig holds configuration for CloudWatch Logs shipping.
type LogsPublisherConfig struct {
	AWS           awsclient.Settings
	LogGroupName  string
	LogStreamName string
	BufferSize    int
	FlushInterval time.Duration
	AutoCreate    bool
}

// LogsPublisher ships logger entries to CloudWatch Logs. Publish never performs
// network I/O: a full buffer wakes the background flusher instead.
// Implements port.LogPublisher.
//
// The publisher must not log through the logger it is attached to; flush
// failures are counted and exposed with Dropped/LastError instead.
type LogsPublisher struct {
	client        logsAPI
	logGroupName  string
	logStreamName string

	mu         sync.Mutex
	buffer     []port.LogEntry
	bufferSize int
	dropped    int64
	lastErr    error

	flushMu       sync.Mutex
	sequenceToken *string

	flushInterval time.Duration
	kick          chan struct{}
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewLogsPublisher creates the publisher, optionally creating the group and
// stream, and starts the background flusher.
func NewLogsPublisher(ctx context.Context, cfg LogsPublisherConfig) (*LogsPublisher, error) {
	if cfg.LogGroupName == "" {
		return nil, fmt.Errorf("log group name is required")
	}
	if cfg.LogStreamName == "" {
		return nil, fmt.Errorf("log stream name is required")
	}

	awsCfg, err := awsclient.LoadConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}

	p := newLogsPublisher(cloudwatchlogs.NewFromConfig(awsCfg), cfg)
	if cfg.AutoCreate {
		if err := p.ensureLogGroupAndStream(ctx); err != nil {
			return nil, err
		}
	}
	p.start()
	return p, nil
}

func newLogsPublisher(client logsAPI, cfg LogsPublisherConfig) *LogsPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	return &LogsPublisher{
		client:        client,
		logGroupName:  cfg.LogGroupName,
		logStreamName: cfg.LogStreamName,
		buffer:        make([]port.LogEntry, 0, cfg.BufferSize),
		bufferSize:    cfg.BufferSize,
		flushInterval: cfg.FlushInterval,
		kick:          make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}
}

func (p *LogsPublisher) start() {
	p.wg.Add(1)
	go p.flushLoop()
}

// Publish enqueues a single entry.
func (p *LogsPublisher) Publish(_ context.Context, entry port.LogEntry) error {
	p.enqueue(entry)
	return nil
}

// PublishBatch enqueues several entries.
func (p *LogsPublisher) PublishBatch(_ context.Context, entries []port.LogEntry) error {
	p.enqueue(entries...)
	return nil
}

func (p *LogsPublisher) enqueue(entries ...port.LogEntry) {
	if len(entries) == 0 {
		return
	}

	p.mu.Lock()
	for _, entry := range entries {
		if len(p.buffer) >= p.bufferSize*maxBufferedBatches {
			p.dropped++
			continue
		}
		p.buffer = append(p.buffer, entry)
	}
	full := len(p.buffer) >= p.bufferSize
	p.mu.Unlock()

	if full {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

// Flush sends everything buffered so far.
func (p *LogsPublisher) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	pending := p.buffer
	p.buffer = make([]port.LogEntry, 0, p.bufferSize)
	p.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	err := p.send(ctx, pending)

	p.mu.Lock()
	p.lastErr = err
	if err != nil {
		// Unsent entries go back to the front of the buffer
		p.buffer = append(pending, p.buffer...)
		if overflow := len(p.buffer) - p.bufferSize*maxBufferedBatches; overflow > 0 {
			p.buffer = p.buffer[overflow:]
			p.dropped += int64(overflow)
		}
	}
	p.mu.Unlock()

	return err
}

// Close stops the background flusher and sends what is left.
func (p *LogsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.wg.Wait()
	return p.Flush(ctx)
}

// Dropped reports how many entries were discarded because the buffer overflowed.
func (p *LogsPublisher) Dropped() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// LastError returns the error of the most recent flush, if any.
func (p *LogsPublisher) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *LogsPublisher) flushLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-p.kick:
		case <-p.stopCh:
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_ = p.Flush(ctx)
		cancel()
	}
}

func (p *LogsPublisher) send(ctx context.Context, entries []port.LogEntry) error {
	// CloudWatch Logs requires chronological order within a request.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	events := make([]types.InputLogEvent, 0, len(entries))
	for _, entry := range entries {
		event, err := toLogEvent(entry)
		if err != nil {
			continue
		}
		events = append(events, event)
	}

	for start := 0; start < len(events); start += maxLogEventsPerRequest {
		end := min(start+maxLogEventsPerRequest, len(events))
		if err := p.putWithRetry(ctx, events[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *LogsPublisher) putWithRetry(ctx context.Context, events []types.InputLogEvent) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		out, err := p.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(p.logGroupName),
			LogStreamName: aws.String(p.logStreamName),
			LogEvents:     events,
			SequenceToken: p.sequenceToken,
		})
		if err == nil {
			p.sequenceToken = out.NextSequenceToken
			return nil
		}

		var invalidSeq *types.InvalidSequenceTokenException
		if errors.As(err, &invalidSeq) {
			p.sequenceToken = invalidSeq.ExpectedSequenceToken
			lastErr = err
			continue
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

	return fmt.Errorf("put log events failed after %d attempts: %w", maxRetries, lastErr)
}

// toLogEvent renders an entry as one JSON line, truncated to the service limit.
func toLogEvent(entry port.LogEntry) (types.InputLogEvent, error) {
	record := map[string]interface{}{
		"timestamp": entry.Timestamp.UTC().Format(time.RFC3339Nano),
		"level":     string(entry.Level),
		"message":   entry.Message,
	}
	if len(entry.Fields) > 0 {
		record["fields"] = entry.Fields
	}

	data, err := json.Marshal(record)
	if err != nil {
		return types.InputLogEvent{}, fmt.Errorf("failed to marshal log entry: %w", err)
	}

	message := string(data)
	if len(message) > maxLogEventSize {
		message = message[:maxLogEventSize-3] + "..."
	}

	return types.InputLogEvent{
		Message:   aws.String(message),
		Timestamp: aws.Int64(entry.Timestamp.UnixMilli()),
	}, nil
}

func (p *LogsPublisher) ensureLogGroupAndStream(ctx context.Context) error {
	var exists *types.ResourceAlreadyExistsException

	_, err := p.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(p.logGroupName),
	})
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to create log group: %w", err)
	}

	_, err = p.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(p.logGroupName),
		LogStreamName: aws.String(p.logStreamName),
	})
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to create log stream: %w", err)
	}

	return nil
}
