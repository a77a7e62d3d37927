package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"devtalk/infrastructure/ws"
	"devtalk/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebsocketHandler struct {
	hub       ws.IHub
	userUc    usecase.UserUsecase
	messageUc usecase.MessageUsecase
	logger    *zap.Logger
}

func NewWebsocketHandler(hub ws.IHub, userUc usecase.UserUsecase, messageUc usecase.MessageUsecase, logger *zap.Logger) *WebsocketHandler {
	h := &WebsocketHandler{
		hub:       hub,
		userUc:    userUc,
		messageUc: messageUc,
		logger:    logger,
	}
	hub.SetOnUserOffline(h.handleUserOffline)
	return h
}

func (h *WebsocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userId, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || userId <= 0 {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	if _, err := h.userUc.Get(ctx, userId); err != nil {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	if err := h.userUc.HandleConnect(ctx, userId); err != nil {
		h.logger.Error("mark user online failed", zap.Int64("userId", userId), zap.Error(err))
	}

	client := ws.NewClient(strconv.FormatInt(userId, 10), h.hub, conn, h.logger)
	h.hub.RegisterClient(client)

	go client.WritePump()
	client.ReadPump(func(data []byte) {
		h.handleFrame(context.Background(), userId, data)
	})
}

func (h *WebsocketHandler) handleUserOffline(userId string) error {
	id, err := strconv.ParseInt(userId, 10, 64)
	if err != nil {
		return err
	}
	return h.userUc.HandleDisconnect(context.Background(), id)
}

// handleFrame dispatches one inbound frame. Malformed or failing frames are
// logged and dropped; the connection stays up.
func (h *WebsocketHandler) handleFrame(ctx context.Context, senderId int64, data []byte) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		h.logger.Warn("unparseable frame", zap.Int64("userId", senderId), zap.Error(err))
		return
	}

	switch envelope.Event {
	case EventSendMessage:
		var req SendMessageRequest
		if err := json.Unmarshal(envelope.Data, &req); err != nil {
			h.logger.Warn("bad sendMessage payload", zap.Error(err))
			return
		}
		if _, err := h.messageUc.Send(ctx, senderId, req.ReceiverId, req.Content); err != nil {
			h.logger.Warn("send failed", zap.Int64("senderId", senderId), zap.Error(err))
		}

	case EventTyping:
		var req TypingRequest
		if err := json.Unmarshal(envelope.Data, &req); err != nil {
			h.logger.Warn("bad typing payload", zap.Error(err))
			return
		}
		if err := h.messageUc.RelayTyping(ctx, senderId, req.ReceiverId, req.IsTyping); err != nil {
			h.logger.Warn("typing relay failed", zap.Int64("senderId", senderId), zap.Error(err))
		}

	case EventMessageDelivered:
		var req DeliveredRequest
		if err := json.Unmarshal(envelope.Data, &req); err != nil {
			h.logger.Warn("bad delivered payload", zap.Error(err))
			return
		}
		if err := h.messageUc.MarkDelivered(ctx, req.MessageId); err != nil {
			h.logger.Warn("delivery ack failed", zap.String("messageId", req.MessageId), zap.Error(err))
		}

	case EventMessagesRead:
		var req ReadRequest
		if err := json.Unmarshal(envelope.Data, &req); err != nil {
			h.logger.Warn("bad read payload", zap.Error(err))
			return
		}
		if err := h.messageUc.MarkRead(ctx, req.ConversationId, senderId); err != nil {
			h.logger.Warn("read ack failed", zap.String("conversationId", req.ConversationId), zap.Error(err))
		}

	default:
		h.logger.Warn("unknown event", zap.String("event", envelope.Event), zap.Int64("userId", senderId))
	}
}
