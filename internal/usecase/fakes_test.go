package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"devtalk/internal/entity"
	apperrors "devtalk/pkg/errors"

	"github.com/google/uuid"
)

// The fakes mirror the storage semantics the mongo repositories promise:
// pair-unique get-or-create, counter increments that never lose updates, and
// guarded status transitions.

type fakeConversationRepo struct {
	mu    sync.Mutex
	byId  map[string]entity.Conversation
	pairs map[[2]int64]string
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		byId:  make(map[string]entity.Conversation),
		pairs: make(map[[2]int64]string),
	}
}

func (f *fakeConversationRepo) GetOrCreate(ctx context.Context, userA, userB int64) (entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	low, high := entity.NormalizePair(userA, userB)
	if id, ok := f.pairs[[2]int64{low, high}]; ok {
		return f.byId[id], nil
	}

	conversation := entity.Conversation{
		Id:                uuid.New().String(),
		ParticipantLowId:  low,
		ParticipantHighId: high,
		CreatedAt:         time.Now().UTC(),
	}
	f.byId[conversation.Id] = conversation
	f.pairs[[2]int64{low, high}] = conversation.Id
	return conversation, nil
}

func (f *fakeConversationRepo) Get(ctx context.Context, conversationId string) (entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	conversation, ok := f.byId[conversationId]
	if !ok {
		return entity.Conversation{}, apperrors.ErrConversationNotFound
	}
	return conversation, nil
}

func (f *fakeConversationRepo) RecordNewMessage(ctx context.Context, conversationId string, senderId int64, preview string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	conversation, ok := f.byId[conversationId]
	if !ok {
		return apperrors.ErrConversationNotFound
	}
	receiverId, ok := conversation.OtherParticipant(senderId)
	if !ok {
		return apperrors.ErrNotParticipant
	}

	conversation.LastMessageAt = time.Now().UTC()
	conversation.LastMessagePreview = entity.TruncatePreview(preview)
	if receiverId == conversation.ParticipantLowId {
		conversation.UnreadCountLow++
	} else {
		conversation.UnreadCountHigh++
	}
	f.byId[conversationId] = conversation
	return nil
}

func (f *fakeConversationRepo) MarkRead(ctx context.Context, conversationId string, userId int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	conversation, ok := f.byId[conversationId]
	if !ok {
		return apperrors.ErrConversationNotFound
	}
	switch userId {
	case conversation.ParticipantLowId:
		conversation.UnreadCountLow = 0
	case conversation.ParticipantHighId:
		conversation.UnreadCountHigh = 0
	default:
		return apperrors.ErrNotParticipant
	}
	f.byId[conversationId] = conversation
	return nil
}

func (f *fakeConversationRepo) ListForUser(ctx context.Context, userId int64) ([]entity.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var conversations []entity.Conversation
	for _, conversation := range f.byId {
		if conversation.HasParticipant(userId) {
			conversations = append(conversations, conversation)
		}
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessageAt.After(conversations[j].LastMessageAt)
	})
	return conversations, nil
}

func (f *fakeConversationRepo) EnsureIndexes(ctx context.Context) error { return nil }

type fakeMessageRepo struct {
	mu       sync.Mutex
	order    []string
	messages map[string]entity.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string]entity.Message)}
}

func (f *fakeMessageRepo) Append(ctx context.Context, conversationId string, senderId int64, content string) (entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	message := entity.Message{
		Id:             uuid.New().String(),
		ConversationId: conversationId,
		SenderId:       senderId,
		Content:        content,
		Status:         entity.MessageStatusSent,
		Timestamp:      time.Now().UTC(),
	}
	f.messages[message.Id] = message
	f.order = append(f.order, message.Id)
	return message, nil
}

func (f *fakeMessageRepo) Get(ctx context.Context, messageId string) (entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	message, ok := f.messages[messageId]
	if !ok {
		return entity.Message{}, apperrors.ErrMessageNotFound
	}
	return message, nil
}

func (f *fakeMessageRepo) ListByConversation(ctx context.Context, conversationId string) ([]entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var messages []entity.Message
	for _, id := range f.order {
		if f.messages[id].ConversationId == conversationId {
			messages = append(messages, f.messages[id])
		}
	}
	return messages, nil
}

func (f *fakeMessageRepo) FindUnreadFrom(ctx context.Context, conversationId string, senderId int64) ([]entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var messages []entity.Message
	for _, id := range f.order {
		message := f.messages[id]
		if message.ConversationId == conversationId && message.SenderId == senderId && message.Status != entity.MessageStatusRead {
			messages = append(messages, message)
		}
	}
	return messages, nil
}

func (f *fakeMessageRepo) SetStatus(ctx context.Context, messageId string, status entity.MessageStatus, readAt *time.Time) (bool, error) {
	if !status.Valid() || status == entity.MessageStatusSent {
		return false, apperrors.ErrInvalidStatusTransition
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	message, ok := f.messages[messageId]
	if !ok {
		return false, apperrors.ErrMessageNotFound
	}
	if message.Status == status {
		return false, nil
	}
	if !message.Status.CanAdvanceTo(status) {
		return false, apperrors.ErrInvalidStatusTransition
	}

	message.Status = status
	if status == entity.MessageStatusRead {
		if readAt == nil {
			now := time.Now().UTC()
			readAt = &now
		}
		message.ReadAt = readAt
	}
	f.messages[messageId] = message
	return true, nil
}

func (f *fakeMessageRepo) MarkReadBySender(ctx context.Context, conversationId string, senderId int64, readAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var modified int64
	for id, message := range f.messages {
		if message.ConversationId == conversationId && message.SenderId == senderId && message.Status != entity.MessageStatusRead {
			message.Status = entity.MessageStatusRead
			at := readAt
			message.ReadAt = &at
			f.messages[id] = message
			modified++
		}
	}
	return modified, nil
}

func (f *fakeMessageRepo) EnsureIndexes(ctx context.Context) error { return nil }

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int64]entity.User
}

func newFakeUserRepo(users ...entity.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[int64]entity.User)}
	for _, user := range users {
		f.users[user.Id] = user
	}
	return f
}

func (f *fakeUserRepo) Get(ctx context.Context, userId int64) (entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[userId]
	if !ok {
		return entity.User{}, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) Exists(ctx context.Context, userId int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.users[userId]
	return ok, nil
}

func (f *fakeUserRepo) Index(ctx context.Context, filter entity.UserIndexFilter) ([]entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var users []entity.User
	for _, id := range filter.Ids {
		if user, ok := f.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) UpdateStatus(ctx context.Context, userId int64, status entity.UserStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[userId]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.Status = status
	if status == entity.UserStatusOffline {
		user.LastSeen = time.Now().UTC()
	}
	f.users[userId] = user
	return nil
}

type push struct {
	UserId  int64
	Channel string
	Payload any
}

type fakeGateway struct {
	mu     sync.Mutex
	pushes []push
}

func (f *fakeGateway) SendToUser(userId int64, channel string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, push{UserId: userId, Channel: channel, Payload: payload})
}

func (f *fakeGateway) sent(userId int64, channel string) []push {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []push
	for _, p := range f.pushes {
		if p.UserId == userId && p.Channel == channel {
			out = append(out, p)
		}
	}
	return out
}

type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
