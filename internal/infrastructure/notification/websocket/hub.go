package websocket

import (
	"context"
	"sync"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

// Типы сообщений потока
const (
	MessageTypeSnapshot = "snapshot"
)

// Message сообщение, отправляемое клиенту
type Message struct {
	Type string                  `json:"type"`
	Data *dto.MetricsSnapshotDTO `json:"data"`
}

// Hub управляет WebSocket клиентами и рассылает им снимки heartbeat.
// Реализует интерфейс port.NotificationService
type Hub struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex

	// Последний снимок, отдается новому клиенту сразу после подключения
	latest *dto.MetricsSnapshotDTO

	broadcast  chan *dto.MetricsSnapshotDTO
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	logger *logger.Logger
}

// NewHub создает новый WebSocket hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan *dto.MetricsSnapshotDTO, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "ws_hub"),
	}
}

// Run обслуживает hub до отмены ctx; при остановке закрывает всех клиентов
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			latest := h.latest
			total := len(h.clients)
			h.mu.Unlock()

			if latest != nil {
				h.deliver(client, latest)
			}
			h.logger.Debug("Client registered", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "total_clients", total)

		case snapshot := <-h.broadcast:
			h.mu.Lock()
			h.latest = snapshot
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.Unlock()

			for _, client := range clients {
				h.deliver(client, snapshot)
			}

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.remove(client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub stopped")
			return
		}
	}
}

// deliver ставит снимок в очередь клиента; медленный клиент отключается
func (h *Hub) deliver(client *Client, snapshot *dto.MetricsSnapshotDTO) {
	select {
	case client.send <- Message{Type: MessageTypeSnapshot, Data: snapshot}:
	default:
		h.mu.Lock()
		h.remove(client)
		h.mu.Unlock()
		h.logger.Warn("Client queue full, disconnected")
	}
}

// remove вызывается под h.mu
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Register регистрирует нового клиента. Возвращает false, если hub уже остановлен
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister удаляет клиента
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast отправляет снимок всем клиентам; при переполнении очереди снимок отбрасывается
func (h *Hub) Broadcast(snapshot *dto.MetricsSnapshotDTO) {
	select {
	case h.broadcast <- snapshot:
	default:
		h.logger.Warn("Broadcast channel full, dropping snapshot")
	}
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
