package usecase

import (
	"context"

	"devtalk/internal/entity"
	"devtalk/internal/repository"
	apperrors "devtalk/pkg/errors"

	"go.uber.org/zap"
)

type ConversationUsecase interface {
	// Index returns the user's conversations enriched with the other
	// participant's directory data, most recent first.
	Index(ctx context.Context, userId int64) ([]entity.ChatSummary, error)
	// Get returns a conversation after verifying callerId participates in it.
	Get(ctx context.Context, conversationId string, callerId int64) (entity.Conversation, error)
}

type conversationUsecase struct {
	convRepo repository.ConversationRepository
	userRepo repository.UserRepository
	logger   *zap.Logger
}

func NewConversationUsecase(convRepo repository.ConversationRepository, userRepo repository.UserRepository, logger *zap.Logger) ConversationUsecase {
	return &conversationUsecase{
		convRepo: convRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

func (u *conversationUsecase) Index(ctx context.Context, userId int64) ([]entity.ChatSummary, error) {
	if userId <= 0 {
		return nil, apperrors.ErrInvalidUserId
	}

	conversations, err := u.convRepo.ListForUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	otherIds := make([]int64, 0, len(conversations))
	for _, conversation := range conversations {
		if otherId, ok := conversation.OtherParticipant(userId); ok {
			otherIds = append(otherIds, otherId)
		}
	}

	userMap := make(map[int64]entity.User)
	if len(otherIds) > 0 {
		users, err := u.userRepo.Index(ctx, entity.UserIndexFilter{Ids: otherIds})
		if err != nil {
			return nil, err
		}
		for _, user := range users {
			userMap[user.Id] = user
		}
	}

	summaries := make([]entity.ChatSummary, 0, len(conversations))
	for _, conversation := range conversations {
		otherId, ok := conversation.OtherParticipant(userId)
		if !ok {
			continue
		}

		other, found := userMap[otherId]
		if !found {
			// the directory no longer knows this user; skip the thread
			u.logger.Warn("conversation references unknown user",
				zap.String("conversationId", conversation.Id),
				zap.Int64("userId", otherId))
			continue
		}

		summaries = append(summaries, entity.ChatSummary{
			ConversationId: conversation.Id,
			OtherUserId:    otherId,
			OtherUserName:  other.Name,
			OtherUserRole:  other.Role,
			OtherUserState: other.Status,
			Preview:        conversation.LastMessagePreview,
			LastMessageAt:  conversation.LastMessageAt,
			UnreadCount:    conversation.UnreadCountFor(userId),
		})
	}

	return summaries, nil
}

func (u *conversationUsecase) Get(ctx context.Context, conversationId string, callerId int64) (entity.Conversation, error) {
	conversation, err := u.convRepo.Get(ctx, conversationId)
	if err != nil {
		return entity.Conversation{}, err
	}

	if !conversation.HasParticipant(callerId) {
		return entity.Conversation{}, apperrors.ErrNotParticipant
	}

	return conversation, nil
}
