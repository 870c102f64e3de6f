package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"benefind/internal/screening/models"
	"benefind/pkg/platform/sentinel"
)

const (
	// Redis key prefix for the latest screening of an owner
	latestKeyPrefix = "screening:latest:"

	defaultLatestTTL = 24 * time.Hour
	maxPutAttempts   = 3
)

// RedisLatestCache caches each owner's most recent screening. Owner ids are
// hashed into the key so raw identifiers never appear in Redis.
type RedisLatestCache struct {
	client *redis.Client
	ttl    time.Duration
	key    []byte
}

type RedisCacheOption func(*RedisLatestCache)

// WithTTL sets how long a cached screening lives.
func WithTTL(ttl time.Duration) RedisCacheOption {
	return func(c *RedisLatestCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithHashKey keys the owner hash. Up to 64 bytes are used.
func WithHashKey(key []byte) RedisCacheOption {
	return func(c *RedisLatestCache) {
		if len(key) > blake2b.Size {
			key = key[:blake2b.Size]
		}
		c.key = key
	}
}

func NewRedisLatestCache(client *redis.Client, opts ...RedisCacheOption) *RedisLatestCache {
	c := &RedisLatestCache{client: client, ttl: defaultLatestTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *RedisLatestCache) ownerKey(owner models.Owner) (string, error) {
	h, err := blake2b.New256(c.key)
	if err != nil {
		return "", fmt.Errorf("owner hash: %w", err)
	}
	h.Write([]byte(owner.String()))
	return latestKeyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns sentinel.ErrNotFound when nothing is cached for owner.
func (c *RedisLatestCache) Get(ctx context.Context, owner models.Owner) (*models.Screening, error) {
	key, err := c.ownerKey(owner)
	if err != nil {
		return nil, err
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var screening models.Screening
	if err := json.Unmarshal(raw, &screening); err != nil {
		return nil, fmt.Errorf("decode cached screening: %w", err)
	}
	return &screening, nil
}

// Put stores s unless a newer screening is already cached for its owner.
// Uses WATCH so a read-through fill cannot overwrite a concurrent newer write.
func (c *RedisLatestCache) Put(ctx context.Context, s *models.Screening) error {
	key, err := c.ownerKey(s.Owner)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode screening: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var cached models.Screening
			if json.Unmarshal(current, &cached) == nil && cached.CreatedAt.After(s.CreatedAt) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}

	for range maxPutAttempts {
		err = c.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}
