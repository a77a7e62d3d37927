package usecase

import (
	"context"
	"fmt"
	"time"

	"devtalk/infrastructure/cache"
	"devtalk/internal/entity"
	"devtalk/internal/repository"
	apperrors "devtalk/pkg/errors"
)

// profileCacheTTL bounds how stale a cached directory profile may get.
// Presence is never served from this cache.
const profileCacheTTL = 30 * time.Second

type UserUsecase interface {
	Get(ctx context.Context, userId int64) (entity.User, error)
	GetStatus(ctx context.Context, userId int64) (entity.UserStatus, error)
	UpdateStatus(ctx context.Context, userId int64, status entity.UserStatus) error
	HandleConnect(ctx context.Context, userId int64) error
	HandleDisconnect(ctx context.Context, userId int64) error
}

type userUsecase struct {
	userRepo repository.UserRepository
	profiles *cache.MemCache
}

func NewUserUseCase(userRepo repository.UserRepository, profiles *cache.MemCache) UserUsecase {
	return &userUsecase{
		userRepo: userRepo,
		profiles: profiles,
	}
}

func profileKey(userId int64) string {
	return fmt.Sprintf("user:%d", userId)
}

func (u *userUsecase) Get(ctx context.Context, userId int64) (entity.User, error) {
	if userId <= 0 {
		return entity.User{}, apperrors.ErrInvalidUserId
	}

	if cached, ok := u.profiles.Get(profileKey(userId)); ok {
		return cached.(entity.User), nil
	}

	user, err := u.userRepo.Get(ctx, userId)
	if err != nil {
		return entity.User{}, err
	}

	u.profiles.Set(profileKey(userId), user, profileCacheTTL)
	return user, nil
}

// GetStatus reads presence straight from the directory, bypassing the
// profile cache.
func (u *userUsecase) GetStatus(ctx context.Context, userId int64) (entity.UserStatus, error) {
	user, err := u.userRepo.Get(ctx, userId)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

func (u *userUsecase) UpdateStatus(ctx context.Context, userId int64, status entity.UserStatus) error {
	if !status.Valid() {
		return apperrors.ErrInvalidUserStatus
	}

	if err := u.userRepo.UpdateStatus(ctx, userId, status); err != nil {
		return err
	}

	u.profiles.Delete(profileKey(userId))
	return nil
}

// HandleConnect flips the user online when their first session appears.
func (u *userUsecase) HandleConnect(ctx context.Context, userId int64) error {
	return u.UpdateStatus(ctx, userId, entity.UserStatusOnline)
}

// HandleDisconnect flips the user offline once their last session is gone.
func (u *userUsecase) HandleDisconnect(ctx context.Context, userId int64) error {
	return u.UpdateStatus(ctx, userId, entity.UserStatusOffline)
}
