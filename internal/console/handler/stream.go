package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/xela07ax/anomaly-console/internal/console/stream"
	"go.uber.org/zap"
)

type StreamHandler struct {
	hub      *stream.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewStreamHandler(hub *stream.Hub, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger.Named("stream-handler"),
	}
}

// Serve переводит запрос в websocket и подписывает браузер на уведомления.
func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам ответил клиенту ошибкой
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := stream.NewClient(uuid.NewString(), h.hub, conn)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
