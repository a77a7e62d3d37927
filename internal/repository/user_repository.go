package repository

import (
	"context"
	"time"

	"devtalk/internal/entity"
	apperrors "devtalk/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository reads the user directory. Accounts are created and managed
// by the platform's user service; messaging only looks users up and flips
// their presence status.
type UserRepository interface {
	Get(ctx context.Context, userId int64) (entity.User, error)
	Exists(ctx context.Context, userId int64) (bool, error)
	Index(ctx context.Context, filter entity.UserIndexFilter) ([]entity.User, error)
	UpdateStatus(ctx context.Context, userId int64, status entity.UserStatus) error
}

type userRepository struct {
	db mongo.Database
}

func NewUserRepository(db mongo.Database) UserRepository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) Get(ctx context.Context, userId int64) (entity.User, error) {
	collection := r.db.Collection("users")
	filter := bson.M{"_id": userId}

	var user entity.User
	err := collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.User{}, apperrors.ErrUserNotFound
		}
		return entity.User{}, err
	}

	return user, nil
}

func (r *userRepository) Exists(ctx context.Context, userId int64) (bool, error) {
	collection := r.db.Collection("users")
	filter := bson.M{"_id": userId}

	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *userRepository) Index(ctx context.Context, filter entity.UserIndexFilter) ([]entity.User, error) {
	collection := r.db.Collection("users")

	bsonFilter := bson.M{}
	if len(filter.Ids) > 0 {
		bsonFilter["_id"] = bson.M{"$in": filter.Ids}
	}

	cursor, err := collection.Find(ctx, bsonFilter)
	if err != nil {
		return nil, err
	}

	var users []entity.User
	err = cursor.All(ctx, &users)
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *userRepository) UpdateStatus(ctx context.Context, userId int64, status entity.UserStatus) error {
	collection := r.db.Collection("users")
	filter := bson.M{"_id": userId}

	set := bson.M{"status": status}
	if status == entity.UserStatusOffline {
		set["lastSeen"] = time.Now().UTC()
	}

	res, err := collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}
