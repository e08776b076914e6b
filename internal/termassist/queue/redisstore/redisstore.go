// Package redisstore backs the entry queue with a Redis list per directory.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/bdobrica/termassist/internal/termassist/queue"
)

// Options holds connection settings.
type Options struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Store is a queue.ListStore over a Redis client.
type Store struct {
	rdb *redis.Client
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, opts Options) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s:%d: %w", opts.Host, opts.Port, err)
	}
	return &Store{rdb: rdb}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) KeyType(ctx context.Context, key string) (queue.KeyType, error) {
	t, err := s.rdb.Type(ctx, key).Result()
	if err != nil {
		return queue.KeyNone, err
	}
	switch t {
	case "none":
		return queue.KeyNone, nil
	case "list":
		return queue.KeyList, nil
	default:
		return queue.KeyOther, nil
	}
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *Store) PushTail(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return s.rdb.RPush(ctx, key, args...).Err()
}

func (s *Store) PopHead(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.LPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Len(ctx context.Context, key string) (int64, error) {
	return s.rdb.LLen(ctx, key).Result()
}

var _ queue.ListStore = (*Store)(nil)
