package dashboard

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/campuskit/facemark/internal/logger"
)

type message struct {
	kind int
	data []byte
}

// Hub fans messages out to every connected websocket client. Broadcast never
// blocks the producer; when the hub is saturated the message is dropped,
// which for a live video feed is the right trade.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan message
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	quit       chan struct{}
	done       chan struct{}
	mutex      sync.RWMutex
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan message, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Info("dashboard client connected, total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Info("dashboard client disconnected, total: %d", total)

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(msg.kind, msg.data); err != nil {
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Stop closes every client connection and ends the run loop.
func (h *Hub) Stop() {
	close(h.quit)
	<-h.done
}

func (h *Hub) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastText queues a text message for all clients.
func (h *Hub) BroadcastText(data []byte) {
	select {
	case h.broadcast <- message{kind: websocket.TextMessage, data: data}:
	default:
	}
}

// BroadcastBinary queues a binary message (JPEG frames) for all clients.
func (h *Hub) BroadcastBinary(data []byte) {
	select {
	case h.broadcast <- message{kind: websocket.BinaryMessage, data: data}:
	default:
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
