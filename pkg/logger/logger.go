package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
)

type Logger struct {
	logger *log.Logger
	level  Level
	fields []interface{}
	sink   *publisherSink
}

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// publisherSink is shared between a logger and all of its children so that
// a publisher attached after With() calls still receives their entries.
type publisherSink struct {
	mu        sync.RWMutex
	publisher port.LogPublisher
}

func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a logger writing to w instead of stdout.
func NewWithWriter(level string, w io.Writer) *Logger {
	return &Logger{
		logger: log.New(w, "", 0),
		level:  parseLevel(level),
		sink:   &publisherSink{},
	}
}

func parseLevel(level string) Level {
	switch level {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// SetLogPublisher forwards every emitted entry to an external log system.
// Passing nil detaches the current publisher.
func (l *Logger) SetLogPublisher(publisher port.LogPublisher) {
	l.sink.mu.Lock()
	l.sink.publisher = publisher
	l.sink.mu.Unlock()
}

// With returns a child logger that appends the given key/value pairs to every entry.
func (l *Logger) With(args ...interface{}) *Logger {
	fields := make([]interface{}, 0, len(l.fields)+len(args))
	fields = append(fields, l.fields...)
	fields = append(fields, args...)
	return &Logger{
		logger: l.logger,
		level:  l.level,
		fields: fields,
		sink:   l.sink,
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= DEBUG {
		l.log(port.LogLevelDebug, msg, args...)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= INFO {
		l.log(port.LogLevelInfo, msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= WARN {
		l.log(port.LogLevelWarn, msg, args...)
	}
}

func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if l.level <= ERROR {
		if err != nil {
			args = append(args, "error", err.Error())
		}
		l.log(port.LogLevelError, msg, args...)
	}
}

func (l *Logger) log(level port.LogLevel, msg string, args ...interface{}) {
	now := time.Now()
	all := append(append([]interface{}{}, l.fields...), args...)

	message := fmt.Sprintf("[%s] [%s] %s", now.Format("2006-01-02 15:04:05"), level, msg)
	if len(all) > 0 {
		message += " |"
		for i := 0; i+1 < len(all); i += 2 {
			message += fmt.Sprintf(" %v=%v", all[i], all[i+1])
		}
	}

	l.logger.Println(message)
	l.publish(now, level, msg, all)
}

func (l *Logger) publish(ts time.Time, level port.LogLevel, msg string, args []interface{}) {
	l.sink.mu.RLock()
	publisher := l.sink.publisher
	l.sink.mu.RUnlock()
	if publisher == nil {
		return
	}

	fields := make(map[string]interface{}, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		fields[fmt.Sprint(args[i])] = args[i+1]
	}

	// Ошибки публикации не логируем, чтобы не уйти в рекурсию
	_ = publisher.Publish(context.Background(), port.LogEntry{
		Timestamp: ts,
		Level:     level,
		Message:   msg,
		Fields:    fields,
	})
}
