package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "decks:prefs:"

// RedisStore keeps one hash per profile.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("preferences: parse redis url: %w", err)
	}
	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("preferences: connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient wraps an existing client. Close closes the client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) hashKey(profileID string) string {
	return redisKeyPrefix + strings.TrimSpace(profileID)
}

// All returns every preference of the profile.
func (s *RedisStore) All(ctx context.Context, profileID string) (map[string]string, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, ErrInvalidProfile
	}
	values, err := s.client.HGetAll(ctx, s.hashKey(profileID)).Result()
	if err != nil {
		return nil, fmt.Errorf("preferences: load: %w", err)
	}
	return values, nil
}

// Get returns one preference or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, profileID, key string) (string, error) {
	profile, normalizedKey, err := validateEntry(profileID, key)
	if err != nil {
		return "", err
	}
	value, err := s.client.HGet(ctx, s.hashKey(profile), normalizedKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("preferences: get: %w", err)
	}
	return value, nil
}

// Set stores a preference.
func (s *RedisStore) Set(ctx context.Context, profileID, key, value string) error {
	profile, normalizedKey, err := validateEntry(profileID, key)
	if err != nil {
		return err
	}
	if err := validateValue(value); err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.hashKey(profile), normalizedKey, value).Err(); err != nil {
		return fmt.Errorf("preferences: set: %w", err)
	}
	return nil
}

// Delete removes a preference. Missing keys are not an error.
func (s *RedisStore) Delete(ctx context.Context, profileID, key string) error {
	profile, normalizedKey, err := validateEntry(profileID, key)
	if err != nil {
		return err
	}
	if err := s.client.HDel(ctx, s.hashKey(profile), normalizedKey).Err(); err != nil {
		return fmt.Errorf("preferences: delete: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
