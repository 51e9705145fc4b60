package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tree_nav/internal/domain/session"
	errs "tree_nav/internal/errors"
)

const sessionKeyPrefix = "session:"

type RedisSessionStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRedisStorage stores sessions as JSON. Every write renews ttl; zero
// means no expiry.
func NewSessionRedisStorage(client *redis.Client, ttl time.Duration) *RedisSessionStorage {
	return &RedisSessionStorage{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisSessionStorage) StoreSession(ctx context.Context, s session.Session) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+s.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *RedisSessionStorage) GetSession(ctx context.Context, sessionID string) (session.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Session{}, errs.ErrSessionNotFound
	} else if err != nil {
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return session.Session{}, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return s, nil
}

func (r *RedisSessionStorage) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := r.client.Del(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return errs.ErrSessionNotFound
	}
	return nil
}
