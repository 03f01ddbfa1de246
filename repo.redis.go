package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type redisTokenStore struct {
	logger *zap.Logger
	client *redis.Client
	clock  Clocker
	key    string
	ttl    time.Duration
}

// NewRedisTokenStore provides a session store which keeps the session
// under a single key and lets redis expire it with the session.
func NewRedisTokenStore(logger *zap.Logger, config *Config, clock Clocker, client *redis.Client) TokenStore {
	return &redisTokenStore{
		logger: logger,
		client: client,
		clock:  clock,
		key:    config.Redis.Key,
		ttl:    config.Session.TTL,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// Save stores the session until it expires, or for the configured ttl
// when it has no expiry.
func (rs *redisTokenStore) Save(ctx context.Context, s Session) error {
	ttl := rs.ttl
	if !s.ExpiresAt.IsZero() {
		ttl = s.ExpiresAt.Sub(rs.clock.Now())
	}
	if ttl <= 0 {
		rs.logger.Warn("refusing to store an expired session", zap.String("session.subject", s.Subject))
		return rs.Clear(ctx)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return rs.client.Set(ctx, rs.key, data, ttl).Err()
}

// Load returns the stored session or ErrNoSession.
func (rs *redisTokenStore) Load(ctx context.Context) (Session, error) {
	var s Session
	data, err := rs.client.Get(ctx, rs.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return s, ErrNoSession
	}
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(data, &s)
	return s, err
}

// Clear removes the stored session.
func (rs *redisTokenStore) Clear(ctx context.Context) error {
	return rs.client.Del(ctx, rs.key).Err()
}

func (rs *redisTokenStore) Close() error {
	return rs.client.Close()
}
