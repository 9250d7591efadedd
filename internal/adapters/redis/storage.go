package redis

// Package redis provides the Redis-backed local storage used by shared kiosks and test rigs.

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Storage keeps one device's local storage in a single Redis hash.
// SetMany writes every field with one HSET, so a pair is never half-written.
type Storage struct {
	client redis.UniversalClient
	key    string
}

// DefaultPrefix is prepended to the namespace to form the hash key.
const DefaultPrefix = "greenhands:storage:"

// NewStorage creates a Redis-backed storage for namespace.
func NewStorage(client redis.UniversalClient, namespace string) *Storage {
	return NewStorageWithPrefix(client, DefaultPrefix, namespace)
}

// NewStorageWithPrefix creates a Redis-backed storage with a custom key prefix.
func NewStorageWithPrefix(client redis.UniversalClient, prefix, namespace string) *Storage {
	if namespace == "" {
		namespace = "default"
	}
	return &Storage{
		client: client,
		key:    prefix + namespace,
	}
}

// Key returns the hash key holding this device's values.
func (s *Storage) Key() string { return s.key }

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}

	val, err := s.client.HGet(ctx, s.key, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis hget %s: %w", key, err)
	}
	return val, true, nil
}

func (s *Storage) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	fields := make([]any, 0, len(values)*2)
	for k, v := range values {
		if k == "" {
			return errors.New("storage key cannot be empty")
		}
		fields = append(fields, k, v)
	}

	if err := s.client.HSet(ctx, s.key, fields...).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil // Nothing to delete
	}
	if err := s.client.HDel(ctx, s.key, keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}
