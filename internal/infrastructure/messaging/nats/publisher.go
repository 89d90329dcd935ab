package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

const defaultSubjectPrefix = "swarm.heartbeat"

// Options configure the snapshot publisher.
type Options struct {
	URL           string
	SubjectPrefix string
	// StreamName, when set, is created on connect if it does not exist yet.
	StreamName string
}

// SnapshotPublisher publishes every cycle snapshot to NATS JetStream.
// Implements port.SnapshotEventPublisher.
type SnapshotPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	prefix string
	logger *logger.Logger
}

// NewSnapshotPublisher connects to NATS and prepares the JetStream context.
func NewSnapshotPublisher(opts Options, log *logger.Logger) (*SnapshotPublisher, error) {
	log = log.With("component", "nats")

	nc, err := nats.Connect(opts.URL,
		nats.Name("swarm-heartbeat"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	prefix := strings.Trim(opts.SubjectPrefix, ".")
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}

	if opts.StreamName != "" {
		if err := ensureStream(js, opts.StreamName, prefix); err != nil {
			nc.Close()
			return nil, err
		}
	}

	log.Info("Connected to NATS", "url", opts.URL, "subject_prefix", prefix)

	return &SnapshotPublisher{
		nc:     nc,
		js:     js,
		prefix: prefix,
		logger: log,
	}, nil
}

func ensureStream(js nats.JetStreamContext, name, prefix string) error {
	_, err := js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{prefix + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}
	return nil
}

// PublishSnapshot publishes the snapshot to <prefix>.<swarm_id>.
func (p *SnapshotPublisher) PublishSnapshot(ctx context.Context, snapshot *dto.MetricsSnapshotDTO) error {
	msg, err := NewSnapshotMessage(p.prefix, snapshot)
	if err != nil {
		return err
	}

	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		p.logger.Error("Failed to publish snapshot", err, "subject", msg.Subject)
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	p.logger.Debug("Snapshot published", "subject", msg.Subject, "size", len(msg.Data))
	return nil
}

// NewSnapshotMessage builds the JetStream message for a snapshot. The message id
// deduplicates redeliveries of the same cycle.
func NewSnapshotMessage(prefix string, snapshot *dto.MetricsSnapshotDTO) (*nats.Msg, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	msg := nats.NewMsg(Subject(prefix, snapshot.SwarmID))
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set(nats.MsgIdHdr, fmt.Sprintf("%s-%d", snapshot.SwarmID, snapshot.Timestamp.Unix()))
	return msg, nil
}

// Subject returns the subject for a swarm. Characters that are special in NATS
// subjects are replaced so the swarm id stays a single token.
func Subject(prefix, swarmID string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, swarmID)
	if token == "" {
		token = "unknown"
	}
	return strings.Trim(prefix, ".") + "." + token
}

// Close drains pending publishes and closes the connection.
func (p *SnapshotPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	p.logger.Info("Closing NATS connection")
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
