package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/auth-service/internal/domain"
)

type redisUserRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type redisUserRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisUserRepository stores one JSON document per username under prefix.
func NewRedisUserRepository(client *redis.Client, prefix string) UserRepository {
	return &redisUserRepository{client: client, prefix: prefix}
}

func (r *redisUserRepository) key(username string) string {
	return r.prefix + username
}

func (r *redisUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	data, err := r.client.Get(ctx, r.key(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("find user: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w: %v", domain.ErrStoreUnavailable, err)
	}

	var rec redisUserRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &domain.User{
		ID:           rec.ID,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func (r *redisUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(username)).Result()
	if err != nil {
		return false, fmt.Errorf("check user: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

func (r *redisUserRepository) Save(ctx context.Context, user *domain.User) error {
	prepareUser(user)
	data, err := json.Marshal(redisUserRecord{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	created, err := r.client.SetNX(ctx, r.key(user.Username), data, 0).Result()
	if err != nil {
		return fmt.Errorf("save user: %w: %v", domain.ErrStoreUnavailable, err)
	}
	if !created {
		return fmt.Errorf("save user: %w", domain.ErrAlreadyExists)
	}
	return nil
}
