package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"devtalk/internal/entity"
	"devtalk/internal/repository"
	apperrors "devtalk/pkg/errors"

	"go.uber.org/zap"
)

// Push channel names, addressed per user.
const (
	ChannelMessages         = "messages"
	ChannelTyping           = "typing"
	ChannelReadReceipts     = "read-receipts"
	ChannelDeliveryReceipts = "delivery-receipts"
)

// Gateway pushes a payload to every connected session of a user. Delivery is
// fire and forget; the write path never depends on it.
type Gateway interface {
	SendToUser(userId int64, channel string, payload any)
}

// Transactor runs fn as one atomic unit against the store.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TypingEvent is relayed between participants without touching storage.
type TypingEvent struct {
	SenderId   int64 `json:"senderId"`
	ReceiverId int64 `json:"receiverId"`
	IsTyping   bool  `json:"isTyping"`
}

type MessageUsecase interface {
	Send(ctx context.Context, senderId, receiverId int64, content string) (entity.MessageView, error)
	ListConversation(ctx context.Context, conversationId string, callerId int64) ([]entity.MessageView, error)
	ListBetweenUsers(ctx context.Context, userA, userB int64) ([]entity.MessageView, error)
	MarkRead(ctx context.Context, conversationId string, readerId int64) error
	MarkDelivered(ctx context.Context, messageId string) error
	RelayTyping(ctx context.Context, senderId, receiverId int64, isTyping bool) error
}

type messageUsecase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	userRepo repository.UserRepository
	gateway  Gateway
	tx       Transactor
	logger   *zap.Logger
}

func NewMessageUsecase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	gateway Gateway,
	tx Transactor,
	logger *zap.Logger,
) MessageUsecase {
	return &messageUsecase{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		userRepo: userRepo,
		gateway:  gateway,
		tx:       tx,
		logger:   logger,
	}
}

// Send persists a message from senderId to receiverId and pushes it to both
// participants. Append and conversation metadata update commit atomically;
// the pushes happen after commit and never roll it back.
func (u *messageUsecase) Send(ctx context.Context, senderId, receiverId int64, content string) (entity.MessageView, error) {
	if senderId <= 0 || receiverId <= 0 {
		return entity.MessageView{}, apperrors.ErrInvalidUserId
	}
	if senderId == receiverId {
		return entity.MessageView{}, apperrors.ErrSelfConversation
	}
	if strings.TrimSpace(content) == "" {
		return entity.MessageView{}, apperrors.ErrEmptyContent
	}

	for _, userId := range []int64{senderId, receiverId} {
		exists, err := u.userRepo.Exists(ctx, userId)
		if err != nil {
			return entity.MessageView{}, err
		}
		if !exists {
			return entity.MessageView{}, apperrors.ErrUserNotFound
		}
	}

	conversation, err := u.convRepo.GetOrCreate(ctx, senderId, receiverId)
	if err != nil {
		return entity.MessageView{}, err
	}

	var message entity.Message
	err = u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		message, err = u.msgRepo.Append(ctx, conversation.Id, senderId, content)
		if err != nil {
			return err
		}
		return u.convRepo.RecordNewMessage(ctx, conversation.Id, senderId, content)
	})
	if err != nil {
		return entity.MessageView{}, err
	}

	view := message.View(receiverId)
	u.gateway.SendToUser(receiverId, ChannelMessages, view)
	u.gateway.SendToUser(senderId, ChannelMessages, view)

	return view, nil
}

func (u *messageUsecase) ListConversation(ctx context.Context, conversationId string, callerId int64) ([]entity.MessageView, error) {
	conversation, err := u.convRepo.Get(ctx, conversationId)
	if err != nil {
		return nil, err
	}

	otherId, ok := conversation.OtherParticipant(callerId)
	if !ok {
		return nil, apperrors.ErrNotParticipant
	}

	messages, err := u.msgRepo.ListByConversation(ctx, conversationId)
	if err != nil {
		return nil, err
	}

	views := make([]entity.MessageView, 0, len(messages))
	for _, message := range messages {
		receiverId := otherId
		if message.SenderId != callerId {
			receiverId = callerId
		}
		views = append(views, message.View(receiverId))
	}

	return views, nil
}

// ListBetweenUsers resolves (or creates) the pair's conversation and lists
// its messages.
func (u *messageUsecase) ListBetweenUsers(ctx context.Context, userA, userB int64) ([]entity.MessageView, error) {
	if userA <= 0 || userB <= 0 {
		return nil, apperrors.ErrInvalidUserId
	}
	if userA == userB {
		return nil, apperrors.ErrSelfConversation
	}

	conversation, err := u.convRepo.GetOrCreate(ctx, userA, userB)
	if err != nil {
		return nil, err
	}

	return u.ListConversation(ctx, conversation.Id, userA)
}

// MarkRead transitions every unread message from the other participant to
// read, emits a read receipt per message to that sender, then resets the
// reader's unread counter.
func (u *messageUsecase) MarkRead(ctx context.Context, conversationId string, readerId int64) error {
	conversation, err := u.convRepo.Get(ctx, conversationId)
	if err != nil {
		return err
	}

	senderId, ok := conversation.OtherParticipant(readerId)
	if !ok {
		return apperrors.ErrNotParticipant
	}

	unread, err := u.msgRepo.FindUnreadFrom(ctx, conversationId, senderId)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := u.msgRepo.MarkReadBySender(ctx, conversationId, senderId, now); err != nil {
			return err
		}
		return u.convRepo.MarkRead(ctx, conversationId, readerId)
	})
	if err != nil {
		return err
	}

	readAt := now
	for _, message := range unread {
		message.Status = entity.MessageStatusRead
		message.ReadAt = &readAt
		u.gateway.SendToUser(senderId, ChannelReadReceipts, message.View(readerId))
	}

	return nil
}

// MarkDelivered advances a sent message to delivered and notifies the
// sender. Re-acking a message that is already delivered or read is a no-op
// and emits no duplicate receipt.
func (u *messageUsecase) MarkDelivered(ctx context.Context, messageId string) error {
	message, err := u.msgRepo.Get(ctx, messageId)
	if err != nil {
		return err
	}

	advanced, err := u.msgRepo.SetStatus(ctx, messageId, entity.MessageStatusDelivered, nil)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidStatusTransition) {
			// already read; read is terminal
			return nil
		}
		return err
	}
	if !advanced {
		return nil
	}

	conversation, err := u.convRepo.Get(ctx, message.ConversationId)
	if err != nil {
		return err
	}
	receiverId, ok := conversation.OtherParticipant(message.SenderId)
	if !ok {
		return apperrors.ErrNotParticipant
	}

	message.Status = entity.MessageStatusDelivered
	u.gateway.SendToUser(message.SenderId, ChannelDeliveryReceipts, message.View(receiverId))

	return nil
}

// RelayTyping forwards a typing indicator to the receiver. Nothing is
// persisted.
func (u *messageUsecase) RelayTyping(ctx context.Context, senderId, receiverId int64, isTyping bool) error {
	if senderId <= 0 || receiverId <= 0 {
		return apperrors.ErrInvalidUserId
	}

	u.gateway.SendToUser(receiverId, ChannelTyping, TypingEvent{
		SenderId:   senderId,
		ReceiverId: receiverId,
		IsTyping:   isTyping,
	})

	return nil
}
