package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/encontrocomfe/backend/internal/domain/model"
)

const devotionalPrefix = "devotional:"

var ErrDevotionalCacheMiss = errors.New("devotional not cached")

type DevotionalRepo struct {
	client *goredis.Client
}

func NewDevotionalRepo(client *goredis.Client) *DevotionalRepo {
	return &DevotionalRepo{client: client}
}

func (r *DevotionalRepo) Get(ctx context.Context, dayKey string) (model.Devotional, error) {
	if r.client == nil {
		return model.Devotional{}, fmt.Errorf("redis client is nil")
	}
	if dayKey == "" {
		return model.Devotional{}, fmt.Errorf("day key is required")
	}

	raw, err := r.client.Get(ctx, devotionalPrefix+dayKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return model.Devotional{}, ErrDevotionalCacheMiss
		}
		return model.Devotional{}, fmt.Errorf("get cached devotional: %w", err)
	}

	var d model.Devotional
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.Devotional{}, fmt.Errorf("decode cached devotional: %w", err)
	}

	return d, nil
}

func (r *DevotionalRepo) Set(ctx context.Context, dayKey string, d model.Devotional, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if dayKey == "" {
		return fmt.Errorf("day key is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode devotional: %w", err)
	}

	if err := r.client.Set(ctx, devotionalPrefix+dayKey, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache devotional: %w", err)
	}

	return nil
}
