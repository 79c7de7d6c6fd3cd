package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "wayfarer:session:%d"

// RedisStore shares sessions between replicas.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore connects to url (redis://...) and checks the connection.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStoreFromClient(client, ttl), nil
}

func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{redis: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, chatID int64) (Session, error) {
	data, err := r.redis.Get(ctx, redisKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return idle(), nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %d: %w", chatID, err)
	}

	var s Session
	if err := sonic.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session %d: %w", chatID, err)
	}
	return s, nil
}

func (r *RedisStore) Put(ctx context.Context, chatID int64, s Session) error {
	s.UpdatedAt = time.Now().UTC()
	data, err := sonic.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", chatID, err)
	}
	if err := r.redis.Set(ctx, redisKey(chatID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("put session %d: %w", chatID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, chatID int64) error {
	if err := r.redis.Del(ctx, redisKey(chatID)).Err(); err != nil {
		return fmt.Errorf("delete session %d: %w", chatID, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.redis.Close()
}

func redisKey(chatID int64) string {
	return fmt.Sprintf(redisKeyPrefix, chatID)
}
