package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 2 * time.Second

// Redis stores keys under a prefix with no expiry.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ KeyValueStore = (*Redis)(nil)

func NewRedis(addr, password, prefix string) *Redis {
	return NewRedisFromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	}), prefix)
}

func NewRedisFromClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("kv redis: ping: %w", err)
	}
	return nil
}

func (r *Redis) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv redis: get %s: %w", key, err)
	}
	return val, true, nil
}

// Set uses MSET so multiple keys land atomically.
func (r *Redis) Set(values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	pairs := make([]any, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, r.key(k), v)
	}
	if err := r.client.MSet(ctx, pairs...).Err(); err != nil {
		return fmt.Errorf("kv redis: mset: %w", err)
	}
	return nil
}

func (r *Redis) Del(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.key(k)
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("kv redis: del: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
