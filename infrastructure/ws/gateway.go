package ws

import (
	"encoding/json"
	"strconv"

	"go.uber.org/zap"
)

// PushMessage is the outbound envelope: the logical channel plus a payload.
// Clients demultiplex on the channel name.
type PushMessage struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// Gateway adapts the hub to the per-user, per-channel push surface consumed
// by the messaging service. Delivery is best effort; failures are logged and
// never propagated to the write path.
type Gateway struct {
	hub    IHub
	logger *zap.Logger
}

func NewGateway(hub IHub, logger *zap.Logger) *Gateway {
	return &Gateway{
		hub:    hub,
		logger: logger,
	}
}

func (g *Gateway) SendToUser(userId int64, channel string, payload any) {
	message, err := json.Marshal(PushMessage{
		Channel: channel,
		Data:    payload,
	})
	if err != nil {
		g.logger.Error("marshal push payload failed", zap.String("channel", channel), zap.Error(err))
		return
	}

	g.hub.SendToUser(strconv.FormatInt(userId, 10), message)
}
