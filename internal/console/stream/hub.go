// Package stream рассылает изменения состояния консоли подключённым браузерам.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/xela07ax/anomaly-console/internal/telemetry"
	"go.uber.org/zap"
)

// Message: уведомление браузеру: тема и снимок изменившейся части состояния.
type Message struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Hub держит подключения браузеров и раздаёт им сообщения.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	metrics    *telemetry.Metrics
	logger     *zap.Logger
}

func NewHub(metrics *telemetry.Metrics, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.With(zap.String("mod", "stream-hub")),
	}
}

// Run: главный цикл хаба. При отмене ctx закрывает всех клиентов.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.metrics.BrowserClients.Set(0)
			h.logger.Info("stream hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.metrics.BrowserClients.Set(float64(total))
			h.logger.Info("browser connected", zap.String("client_id", client.id), zap.Int("total_clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.metrics.BrowserClients.Set(float64(total))
			h.logger.Info("browser disconnected", zap.String("client_id", client.id), zap.Int("total_clients", total))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Медленный браузер: отключаем, он перезагрузит состояние через API
					close(client.send)
					delete(h.clients, client)
				}
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.metrics.BrowserClients.Set(float64(total))
		}
	}
}

// Register ставит клиента в очередь на подключение.
// После остановки хаба канал клиента сразу закрывается, WritePump завершит соединение.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

// Unregister снимает клиента; после остановки хаба ничего не делает.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast не блокирует: при переполнении сообщение теряется.
func (h *Hub) Broadcast(message Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, message dropped", zap.String("type", message.Type))
	}
}

// Publish: реализация service.Publisher.
func (h *Hub) Publish(topic string, data any) {
	h.Broadcast(Message{Type: topic, Timestamp: time.Now().UTC(), Data: data})
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
