package ws

import (
	"sync"

	"go.uber.org/zap"
)

// Hub is the in-memory, single-server push fabric. Sessions are grouped by
// user id so one user can be connected from several devices at once.
type Hub struct {
	clients       map[string]map[*UserClient]bool
	broadcast     chan []byte
	Register      chan *UserClient
	Unregister    chan *UserClient
	mu            sync.RWMutex
	logger        *zap.Logger
	OnUserOffline func(userId string) error
}

func NewHub(logger *zap.Logger) IHub {
	return &Hub{
		clients:    make(map[string]map[*UserClient]bool),
		broadcast:  make(chan []byte, 256),
		Register:   make(chan *UserClient),
		Unregister: make(chan *UserClient),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			sessions, ok := h.clients[client.UserId]
			if !ok {
				sessions = make(map[*UserClient]bool)
				h.clients[client.UserId] = sessions
			}
			sessions[client] = true
			h.mu.Unlock()
			h.logger.Info("client connected", zap.String("userId", client.UserId))

		case client := <-h.Unregister:
			lastSession := false
			h.mu.Lock()
			if sessions, ok := h.clients[client.UserId]; ok {
				if _, ok := sessions[client]; ok {
					delete(sessions, client)
					close(client.send)
					if len(sessions) == 0 {
						delete(h.clients, client.UserId)
						lastSession = true
					}
					h.logger.Info("client disconnected", zap.String("userId", client.UserId))
				}
			}
			h.mu.Unlock()

			if lastSession && h.OnUserOffline != nil {
				if err := h.OnUserOffline(client.UserId); err != nil {
					h.logger.Error("OnUserOffline callback failed", zap.String("userId", client.UserId), zap.Error(err))
				}
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, sessions := range h.clients {
				for client := range sessions {
					select {
					case client.send <- message:
					default:
						h.logger.Warn("send buffer full, dropping broadcast", zap.String("userId", client.UserId))
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// SendToUser delivers message to every session of userId. If the user has no
// sessions the message is silently dropped.
func (h *Hub) SendToUser(userId string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userId] {
		select {
		case client.send <- message:
		default:
			h.logger.Warn("send buffer full, dropping message", zap.String("userId", userId))
		}
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, sessions := range h.clients {
		count += len(sessions)
	}
	return count
}

func (h *Hub) RegisterClient(client *UserClient) {
	h.Register <- client
}

func (h *Hub) UnregisterClient(client *UserClient) {
	h.Unregister <- client
}

func (h *Hub) SetOnUserOffline(callback func(userId string) error) {
	h.OnUserOffline = callback
}
