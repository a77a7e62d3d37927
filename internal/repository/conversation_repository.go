package repository

import (
	"context"
	"time"

	"devtalk/internal/entity"
	apperrors "devtalk/pkg/errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ConversationRepository interface {
	// GetOrCreate returns the unique conversation for the unordered pair,
	// creating it when absent. Safe under concurrent first contact.
	GetOrCreate(ctx context.Context, userA, userB int64) (entity.Conversation, error)
	Get(ctx context.Context, conversationId string) (entity.Conversation, error)
	// RecordNewMessage refreshes the preview cache and atomically increments
	// the receiving participant's unread counter.
	RecordNewMessage(ctx context.Context, conversationId string, senderId int64, preview string) error
	// MarkRead resets userId's unread counter to zero.
	MarkRead(ctx context.Context, conversationId string, userId int64) error
	ListForUser(ctx context.Context, userId int64) ([]entity.Conversation, error)
	EnsureIndexes(ctx context.Context) error
}

type conversationRepository struct {
	db mongo.Database
}

func NewConversationRepository(db mongo.Database) ConversationRepository {
	return &conversationRepository{
		db: db,
	}
}

// EnsureIndexes creates the unique index on the normalized pair that makes
// GetOrCreate race-safe, plus the listing index.
func (r *conversationRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection("conversations")

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "participantLowId", Value: 1},
				{Key: "participantHighId", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uk_conversation_participants"),
		},
		{
			Keys:    bson.D{{Key: "lastMessageAt", Value: -1}},
			Options: options.Index().SetName("idx_conversation_last_message"),
		},
	})
	return err
}

func (r *conversationRepository) GetOrCreate(ctx context.Context, userA, userB int64) (entity.Conversation, error) {
	collection := r.db.Collection("conversations")

	low, high := entity.NormalizePair(userA, userB)
	filter := bson.M{
		"participantLowId":  low,
		"participantHighId": high,
	}

	var conversation entity.Conversation
	err := collection.FindOne(ctx, filter).Decode(&conversation)
	if err == nil {
		return conversation, nil
	}
	if err != mongo.ErrNoDocuments {
		return entity.Conversation{}, err
	}

	conversation = entity.Conversation{
		Id:                uuid.New().String(),
		ParticipantLowId:  low,
		ParticipantHighId: high,
		CreatedAt:         time.Now().UTC(),
	}

	_, err = collection.InsertOne(ctx, conversation)
	if err == nil {
		return conversation, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return entity.Conversation{}, err
	}

	// a concurrent caller created the pair first; re-read and return theirs
	err = collection.FindOne(ctx, filter).Decode(&conversation)
	if err != nil {
		return entity.Conversation{}, err
	}

	return conversation, nil
}

func (r *conversationRepository) Get(ctx context.Context, conversationId string) (entity.Conversation, error) {
	collection := r.db.Collection("conversations")
	filter := bson.M{"_id": conversationId}

	var conversation entity.Conversation
	err := collection.FindOne(ctx, filter).Decode(&conversation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Conversation{}, apperrors.ErrConversationNotFound
		}
		return entity.Conversation{}, err
	}

	return conversation, nil
}

func (r *conversationRepository) RecordNewMessage(ctx context.Context, conversationId string, senderId int64, preview string) error {
	conversation, err := r.Get(ctx, conversationId)
	if err != nil {
		return err
	}

	receiverId, ok := conversation.OtherParticipant(senderId)
	if !ok {
		return apperrors.ErrNotParticipant
	}

	unreadField := "unreadCountHigh"
	if receiverId == conversation.ParticipantLowId {
		unreadField = "unreadCountLow"
	}

	collection := r.db.Collection("conversations")
	// the counter bump must stay a storage-level $inc so concurrent senders
	// never lose updates
	update := bson.M{
		"$set": bson.M{
			"lastMessageAt":      time.Now().UTC(),
			"lastMessagePreview": entity.TruncatePreview(preview),
		},
		"$inc": bson.M{unreadField: 1},
	}

	_, err = collection.UpdateOne(ctx, bson.M{"_id": conversationId}, update)
	return err
}

func (r *conversationRepository) MarkRead(ctx context.Context, conversationId string, userId int64) error {
	collection := r.db.Collection("conversations")

	res, err := collection.UpdateOne(ctx,
		bson.M{"_id": conversationId, "participantLowId": userId},
		bson.M{"$set": bson.M{"unreadCountLow": int64(0)}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	res, err = collection.UpdateOne(ctx,
		bson.M{"_id": conversationId, "participantHighId": userId},
		bson.M{"$set": bson.M{"unreadCountHigh": int64(0)}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	if _, err := r.Get(ctx, conversationId); err != nil {
		return err
	}
	return apperrors.ErrNotParticipant
}

func (r *conversationRepository) ListForUser(ctx context.Context, userId int64) ([]entity.Conversation, error) {
	collection := r.db.Collection("conversations")
	filter := bson.M{
		"$or": bson.A{
			bson.M{"participantLowId": userId},
			bson.M{"participantHighId": userId},
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "lastMessageAt", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var conversations []entity.Conversation
	err = cursor.All(ctx, &conversations)
	if err != nil {
		return nil, err
	}

	return conversations, nil
}
