package port

import (
	"context"
	"time"
)

// LogLevel represents the severity of a log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry is one structured log line forwarded to an external log system.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	Fields    map[string]interface{}
}

// LogPublisher ships agent log lines off the host.
type LogPublisher interface {
	// Publish enqueues a single entry. Implementations must not block on network I/O.
	Publish(ctx context.Context, entry LogEntry) error

	// PublishBatch enqueues several entries at once.
	PublishBatch(ctx context.Context, entries []LogEntry) error

	// Flush sends everything buffered so far. Called on shutdown.
	Flush(ctx context.Context) error
}
