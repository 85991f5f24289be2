package display

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Hub broadcasts transcription results to connected websocket clients. It is
// the transport behind the UI's live result list; slow clients are dropped
// rather than allowed to stall the pipeline.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	send chan []byte
}

// NewHub creates an empty broadcast hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
	}
}

// Show implements Display by broadcasting the entry as JSON.
func (h *Hub) Show(entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		h.logger.Warn("Failed to marshal display entry", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Client is not keeping up; close its channel and forget it.
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and streams results until
// the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // local UI clients, origin check not useful
	})
	if err != nil {
		h.logger.Warn("Websocket accept failed", slog.String("error", err.Error()))
		return
	}

	client := &hubClient{send: make(chan []byte, 32)}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("Websocket client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Consume (and ignore) client frames so close frames are processed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[client]; ok {
			close(client.send)
			delete(h.clients, client)
		}
		h.mu.Unlock()

		conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Debug("Websocket client disconnected")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-client.send:
			if !ok {
				return
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, data)
			writeCancel()
			if err != nil {
				return
			}
		}
	}
}
