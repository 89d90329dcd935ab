package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
)

type recordingPublisher struct {
	mu      sync.Mutex
	entries []port.LogEntry
}

func (p *recordingPublisher) Publish(_ context.Context, entry port.LogEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, entries []port.LogEntry) error {
	for _, e := range entries {
		_ = p.Publish(ctx, e)
	}
	return nil
}

func (p *recordingPublisher) Flush(context.Context) error { return nil }

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message", "attempt", 2)
	log.Error("error message", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("entries below warn must be dropped, got:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] warn message | attempt=2") {
		t.Errorf("warn entry missing or malformed:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] error message | error=boom") {
		t.Errorf("error entry missing or malformed:\n%s", out)
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf).With("component", "delivery")

	log.Info("sent", "status", 200)

	if !strings.Contains(buf.String(), "| component=delivery status=200") {
		t.Errorf("child fields must precede call fields, got %q", buf.String())
	}
}

func TestLoggerPublisherSharedWithChildren(t *testing.T) {
	var buf bytes.Buffer
	root := NewWithWriter("info", &buf)
	child := root.With("component", "scheduler")

	pub := &recordingPublisher{}
	root.SetLogPublisher(pub)

	child.Warn("cycle failed", "cycle", 3)

	if len(pub.entries) != 1 {
		t.Fatalf("published %d entries, want 1", len(pub.entries))
	}
	entry := pub.entries[0]
	if entry.Level != port.LogLevelWarn || entry.Message != "cycle failed" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.Fields["component"] != "scheduler" || entry.Fields["cycle"] != 3 {
		t.Errorf("fields = %v", entry.Fields)
	}

	root.SetLogPublisher(nil)
	child.Info("not published")
	if len(pub.entries) != 1 {
		t.Errorf("detached publisher still received entries")
	}
}
