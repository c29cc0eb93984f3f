// Package settings persists NotificationSettings as JSON under a single
// Redis key.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "payment-reminders/internal/common/errors"
	"payment-reminders/internal/models"
)

const storeName = "redis"

// Store reads and writes notification settings.
type Store interface {
	LoadSettings(ctx context.Context) (*models.NotificationSettings, error)
	SaveSettings(ctx context.Context, s *models.NotificationSettings) error
}

type RedisStore struct {
	client redis.Cmdable
	key    string
}

func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// LoadSettings returns ErrSettingsNotFound when the key is absent.
func (s *RedisStore) LoadSettings(ctx context.Context) (*models.NotificationSettings, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewSettingsNotFoundError(fmt.Sprintf("key %s not set", s.key))
	}
	if err != nil {
		return nil, apperrors.NewStorageReadFailedError(storeName, err)
	}

	var settings models.NotificationSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, apperrors.NewStorageReadFailedError(storeName, fmt.Errorf("decode %s: %w", s.key, err))
	}
	return &settings, nil
}

func (s *RedisStore) SaveSettings(ctx context.Context, settings *models.NotificationSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return apperrors.NewStorageWriteFailedError(storeName, err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return apperrors.NewStorageWriteFailedError(storeName, err)
	}
	return nil
}

// SeedSettings stores settings only if none exist. It reports whether the
// seed was written.
func (s *RedisStore) SeedSettings(ctx context.Context, settings *models.NotificationSettings) (bool, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return false, apperrors.NewStorageWriteFailedError(storeName, err)
	}
	ok, err := s.client.SetNX(ctx, s.key, raw, 0).Result()
	if err != nil {
		return false, apperrors.NewStorageWriteFailedError(storeName, err)
	}
	return ok, nil
}
