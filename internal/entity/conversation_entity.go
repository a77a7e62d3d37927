package entity

import "time"

// PreviewMaxLen is the maximum length of the cached last-message preview.
const PreviewMaxLen = 100

// Conversation is the unique thread between exactly two users. The two
// participant ids are stored normalized so that the numerically smaller id
// always occupies the low slot; this makes the unordered pair unique and is
// backed by a unique index on (participantLowId, participantHighId).
type Conversation struct {
	Id                 string    `bson:"_id" json:"id"`
	ParticipantLowId   int64     `bson:"participantLowId" json:"participantLowId"`
	ParticipantHighId  int64     `bson:"participantHighId" json:"participantHighId"`
	CreatedAt          time.Time `bson:"createdAt" json:"createdAt"`
	LastMessageAt      time.Time `bson:"lastMessageAt,omitempty" json:"lastMessageAt"`
	LastMessagePreview string    `bson:"lastMessagePreview,omitempty" json:"lastMessagePreview"`
	UnreadCountLow     int64     `bson:"unreadCountLow" json:"unreadCountLow"`
	UnreadCountHigh    int64     `bson:"unreadCountHigh" json:"unreadCountHigh"`
}

// ChatSummary is the payload returned when listing a user's conversations,
// enriched with the other participant's directory data.
type ChatSummary struct {
	ConversationId string     `json:"conversationId"`
	OtherUserId    int64      `json:"otherUserId"`
	OtherUserName  string     `json:"otherUserName"`
	OtherUserRole  string     `json:"otherUserRole"`
	OtherUserState UserStatus `json:"otherUserStatus"`
	Preview        string     `json:"preview"`
	LastMessageAt  time.Time  `json:"lastMessageAt"`
	UnreadCount    int64      `json:"unreadCount"`
}

// NormalizePair orders two user ids so the smaller one lands in the low slot.
func NormalizePair(userA, userB int64) (low, high int64) {
	if userA < userB {
		return userA, userB
	}
	return userB, userA
}

// HasParticipant reports whether userId occupies one of the two slots.
func (c Conversation) HasParticipant(userId int64) bool {
	return c.ParticipantLowId == userId || c.ParticipantHighId == userId
}

// OtherParticipant returns the id of the participant that is not userId.
// ok is false when userId is not a participant at all.
func (c Conversation) OtherParticipant(userId int64) (int64, bool) {
	switch userId {
	case c.ParticipantLowId:
		return c.ParticipantHighId, true
	case c.ParticipantHighId:
		return c.ParticipantLowId, true
	}
	return 0, false
}

// UnreadCountFor returns the unread counter belonging to userId's slot.
func (c Conversation) UnreadCountFor(userId int64) int64 {
	switch userId {
	case c.ParticipantLowId:
		return c.UnreadCountLow
	case c.ParticipantHighId:
		return c.UnreadCountHigh
	}
	return 0
}

// TruncatePreview cuts content down to the first PreviewMaxLen characters.
func TruncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewMaxLen {
		return content
	}
	return string(runes[:PreviewMaxLen])
}
