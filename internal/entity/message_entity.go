package entity

import "time"

// MessageStatus is the delivery state of a message. Transitions only move
// forward: sent -> delivered -> read. A read receipt arriving before any
// delivery ack moves the message straight from sent to read; read is
// terminal.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

func (s MessageStatus) Valid() bool {
	switch s {
	case MessageStatusSent, MessageStatusDelivered, MessageStatusRead:
		return true
	}
	return false
}

func (s MessageStatus) rank() int {
	switch s {
	case MessageStatusSent:
		return 0
	case MessageStatusDelivered:
		return 1
	case MessageStatusRead:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() > s.rank()
}

// Message is one entry in a conversation's append-only log. Content is
// immutable once created; only Status and ReadAt ever change.
type Message struct {
	Id             string        `bson:"_id" json:"id"`
	ConversationId string        `bson:"conversationId" json:"conversationId"`
	SenderId       int64         `bson:"senderId" json:"senderId"`
	Content        string        `bson:"content" json:"content"`
	Status         MessageStatus `bson:"status" json:"status"`
	Timestamp      time.Time     `bson:"timestamp" json:"timestamp"`
	ReadAt         *time.Time    `bson:"readAt,omitempty" json:"readAt,omitempty"`
}

// MessageView is the message shape handed to API and push clients. The
// receiver is implicit in storage (the conversation's other participant) and
// made explicit here.
type MessageView struct {
	Id             string        `json:"id"`
	ConversationId string        `json:"conversationId"`
	SenderId       int64         `json:"senderId"`
	ReceiverId     int64         `json:"receiverId"`
	Content        string        `json:"content"`
	Status         MessageStatus `json:"status"`
	Timestamp      time.Time     `json:"timestamp"`
	ReadAt         *time.Time    `json:"readAt,omitempty"`
}

// View builds the MessageView for a known receiver.
func (m Message) View(receiverId int64) MessageView {
	return MessageView{
		Id:             m.Id,
		ConversationId: m.ConversationId,
		SenderId:       m.SenderId,
		ReceiverId:     receiverId,
		Content:        m.Content,
		Status:         m.Status,
		Timestamp:      m.Timestamp,
		ReadAt:         m.ReadAt,
	}
}
