package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/tailgate/internal/app"
	"github.com/ayusman/tailgate/internal/frame"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// writeTimeout bounds how long a slow client can stall a broadcast.
const writeTimeout = time.Second

// LiveMessage is sent to live clients once per processed frame.
type LiveMessage struct {
	Run       string      `json:"run"`
	Stats     frame.Stats `json:"stats"`
	Timestamp int64       `json:"timestamp"`
}

// LiveHub broadcasts per-frame statistics of running pipelines via WebSocket.
type LiveHub struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

// NewLiveHub creates an empty LiveHub.
func NewLiveHub() *LiveHub {
	return &LiveHub{
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends msg to every connected client. Clients that fail to
// receive it are dropped.
func (h *LiveHub) Broadcast(msg LiveMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("live message encode error: %v", err)
		return
	}

	// Writes to a connection must not run concurrently
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Observer returns a pipeline observer that broadcasts the frames of run.
func (h *LiveHub) Observer(run string) app.Observer {
	return app.ObserverFunc(func(f *frame.Frame) {
		h.Broadcast(LiveMessage{
			Run:       run,
			Stats:     f.Stats,
			Timestamp: time.Now().UnixMilli(),
		})
	})
}
