package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisHub is the multi-server push fabric. Local sessions live in memory;
// every push is also published to Redis so sessions of the same user on
// other server instances receive it too.
type RedisHub struct {
	clients map[string]map[*UserClient]bool
	mu      sync.RWMutex

	redisClient *redis.Client
	pubsub      *redis.PubSub
	serverID    string
	logger      *zap.Logger

	Register   chan *UserClient
	Unregister chan *UserClient
	broadcast  chan []byte

	OnUserOffline func(userId string) error
}

type redisEnvelope struct {
	FromServerID string `json:"fromServerId"`
	ToUserID     string `json:"toUserId"`
	Payload      []byte `json:"payload"`
}

func NewRedisHub(redisAddr string, serverID string, logger *zap.Logger) IHub {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	hub := &RedisHub{
		clients:     make(map[string]map[*UserClient]bool),
		redisClient: rdb,
		serverID:    serverID,
		logger:      logger,
		Register:    make(chan *UserClient),
		Unregister:  make(chan *UserClient),
		broadcast:   make(chan []byte, 256),
	}

	hub.pubsub = rdb.PSubscribe(context.Background(), "push:*")

	return hub
}

func (h *RedisHub) Run() {
	go h.subscribeRedis()

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

			// announce which server holds a session for this user
			h.redisClient.Set(
				context.Background(),
				"user:"+client.UserId+":server",
				h.serverID,
				0,
			)

			h.logger.Info("client connected", zap.String("serverId", h.serverID), zap.String("userId", client.UserId))

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
				}
			}
			h.mu.Unlock()

			if lastSession {
				h.redisClient.Del(
					context.Background(),
					"user:"+client.UserId+":server",
				)
				h.logger.Info("client disconnected", zap.String("serverId", h.serverID), zap.String("userId", client.UserId))

				if h.OnUserOffline != nil {
					if err := h.OnUserOffline(client.UserId); err != nil {
						h.logger.Error("OnUserOffline callback failed", zap.String("userId", client.UserId), zap.Error(err))
					}
				}
			}

		case message := <-h.broadcast:
			h.broadcastLocal(message)
		}
	}
}

func (h *RedisHub) subscribeRedis() {
	ch := h.pubsub.Channel()

	h.logger.Info("redis subscriber started", zap.String("serverId", h.serverID))

	for msg := range ch {
		var envelope redisEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			h.logger.Error("unmarshal redis envelope failed", zap.Error(err))
			continue
		}

		// sendLocal already ran on the publishing server
		if envelope.FromServerID == h.serverID {
			continue
		}

		h.sendLocal(envelope.ToUserID, envelope.Payload)
	}
}

// SendToUser delivers to local sessions and publishes to Redis for sessions
// held by other server instances.
func (h *RedisHub) SendToUser(userId string, message []byte) {
	h.sendLocal(userId, message)
	h.publishToRedis(userId, message)
}

func (h *RedisHub) sendLocal(userId string, message []byte) {
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

func (h *RedisHub) publishToRedis(userId string, message []byte) {
	ctx := context.Background()

	envelope := redisEnvelope{
		FromServerID: h.serverID,
		ToUserID:     userId,
		Payload:      message,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Error("marshal redis envelope failed", zap.Error(err))
		return
	}

	if err := h.redisClient.Publish(ctx, "push:"+userId, payload).Err(); err != nil {
		h.logger.Error("redis publish failed", zap.String("userId", userId), zap.Error(err))
	}
}

func (h *RedisHub) broadcastLocal(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for userId, sessions := range h.clients {
		for client := range sessions {
			select {
			case client.send <- message:
			default:
				h.logger.Warn("send buffer full, dropping broadcast", zap.String("userId", userId))
			}
		}
	}
}

func (h *RedisHub) Broadcast(message []byte) {
	h.broadcast <- message
}

func (h *RedisHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, sessions := range h.clients {
		count += len(sessions)
	}
	return count
}

func (h *RedisHub) RegisterClient(client *UserClient) {
	h.Register <- client
}

func (h *RedisHub) UnregisterClient(client *UserClient) {
	h.Unregister <- client
}

func (h *RedisHub) SetOnUserOffline(callback func(userId string) error) {
	h.OnUserOffline = callback
}
