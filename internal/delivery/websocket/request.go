package websocket

import "encoding/json"

const (
	EventSendMessage      = "chat.sendMessage"
	EventTyping           = "typing"
	EventMessageDelivered = "message-delivered"
	EventMessagesRead     = "messages-read"
)

// Envelope is the inbound frame format: an event name plus its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type SendMessageRequest struct {
	ReceiverId int64  `json:"receiverId"`
	Content    string `json:"content"`
}

type TypingRequest struct {
	ReceiverId int64 `json:"receiverId"`
	IsTyping   bool  `json:"isTyping"`
}

type DeliveredRequest struct {
	MessageId string `json:"messageId"`
}

type ReadRequest struct {
	ConversationId string `json:"conversationId"`
}
