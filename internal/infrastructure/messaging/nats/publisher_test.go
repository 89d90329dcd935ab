package nats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		prefix  string
		swarmID string
		want    string
	}{
		{"swarm.heartbeat", "node-1-1700000000", "swarm.heartbeat.node-1-1700000000"},
		{"swarm.heartbeat.", "host.example.com", "swarm.heartbeat.host_example_com"},
		{"swarm", "a*b>c d", "swarm.a_b_c_d"},
		{"swarm", "", "swarm.unknown"},
	}

	for _, tt := range tests {
		if got := Subject(tt.prefix, tt.swarmID); got != tt.want {
			t.Errorf("Subject(%q, %q) = %q, want %q", tt.prefix, tt.swarmID, got, tt.want)
		}
	}
}

func TestNewSnapshotMessage(t *testing.T) {
	snap := &dto.MetricsSnapshotDTO{
		SwarmID:   "node-1",
		Timestamp: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}

	msg, err := NewSnapshotMessage("swarm.heartbeat", snap)
	if err != nil {
		t.Fatalf("NewSnapshotMessage() error = %v", err)
	}

	if msg.Subject != "swarm.heartbeat.node-1" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if got := msg.Header.Get(nats.MsgIdHdr); got != "node-1-1792411200" {
		t.Errorf("Nats-Msg-Id = %q", got)
	}

	var decoded dto.MetricsSnapshotDTO
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.SwarmID != "node-1" || !decoded.Timestamp.Equal(snap.Timestamp) {
		t.Errorf("decoded = %+v", decoded)
	}
}
