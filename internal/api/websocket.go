package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// ──────────────────── WebSocket Hub ────────────────────

type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]bool

	scanMu   sync.RWMutex
	lastScan json.RawMessage // most recent scan:progress payload
}

type WSClient struct {
	conn *websocket.Conn
	id   string
	send chan []byte
}

type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[*WSClient]bool)}
}

func (h *WSHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}

	// Track scan state so newly connected clients see progress mid-pass.
	switch event {
	case "scan:progress":
		h.scanMu.Lock()
		h.lastScan = json.RawMessage(msg)
		h.scanMu.Unlock()
	case "scan:finished":
		h.scanMu.Lock()
		h.lastScan = nil
		h.scanMu.Unlock()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

// sendScanState replays the in-flight scan progress to a new client.
func (h *WSHub) sendScanState(client *WSClient) {
	h.scanMu.RLock()
	defer h.scanMu.RUnlock()
	if h.lastScan == nil {
		return
	}
	select {
	case client.send <- h.lastScan:
	default:
	}
}

func (h *WSHub) addClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *WSHub) removeClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────── WebSocket Handler ────────────────────

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[api] websocket accept error: %v", err)
		return
	}

	client := &WSClient{
		conn: conn,
		id:   uuid.NewString(),
		send: make(chan []byte, 64),
	}

	s.wsHub.addClient(client)
	s.wsHub.sendScanState(client)
	log.Printf("[api] websocket client connected: %s", client.id)

	ctx := r.Context()

	// Writer goroutine
	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Reader loop keeps the connection alive and handles pings.
	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			break
		}
	}

	s.wsHub.removeClient(client)
	log.Printf("[api] websocket client disconnected: %s", client.id)
}
