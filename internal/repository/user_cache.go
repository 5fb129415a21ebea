package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/book-review-service/internal/domain"
)

const profileKeyPrefix = "profile:"

type cachedProfile struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profile_image"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type cachedUserRepository struct {
	UserRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserRepository wraps users with a Redis read-through cache for
// profile lookups. Only the password-free profile is ever written to Redis.
// Cache failures fall back to the wrapped repository.
func NewCachedUserRepository(users UserRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) UserRepository {
	if client == nil || ttl <= 0 {
		return users
	}
	return &cachedUserRepository{UserRepository: users, client: client, ttl: ttl, logger: logger}
}

func (r *cachedUserRepository) GetProfileByID(ctx context.Context, id string) (*domain.User, error) {
	key := profileKeyPrefix + id

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cachedProfile
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return &domain.User{
				ID:           cached.ID,
				Username:     cached.Username,
				Email:        cached.Email,
				ProfileImage: cached.ProfileImage,
				CreatedAt:    cached.CreatedAt,
				UpdatedAt:    cached.UpdatedAt,
			}, nil
		}
		r.logger.Warn("discarding corrupt cached profile", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("profile cache read failed", zap.Error(err))
	}

	user, err := r.UserRepository.GetProfileByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cachedProfile{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		ProfileImage: user.ProfileImage,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
	if err == nil {
		if setErr := r.client.Set(ctx, key, payload, r.ttl).Err(); setErr != nil {
			r.logger.Warn("profile cache write failed", zap.Error(setErr))
		}
	}
	return user, nil
}
