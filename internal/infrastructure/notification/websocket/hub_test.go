package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger.New("error"))
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, conn, logger.New("error")).Serve()
	}))

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestHubBroadcastsSnapshots(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server)
	waitClients(t, hub, 1)

	hub.Broadcast(&dto.MetricsSnapshotDTO{SwarmID: "swarm-1"})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeSnapshot || msg.Data == nil || msg.Data.SwarmID != "swarm-1" {
		t.Errorf("message = %+v", msg)
	}
}

func TestHubReplaysLatestToNewClient(t *testing.T) {
	hub, server := startHub(t)
	first := dial(t, server)
	waitClients(t, hub, 1)

	hub.Broadcast(&dto.MetricsSnapshotDTO{SwarmID: "cycle-1"})
	readMessage(t, first)

	late := dial(t, server)
	msg := readMessage(t, late)
	if msg.Data == nil || msg.Data.SwarmID != "cycle-1" {
		t.Errorf("late client got %+v, want latest snapshot", msg)
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server)
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
}
