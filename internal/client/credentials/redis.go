package credentials

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding the record when no key is configured.
const DefaultRedisKey = "authkeeper:session"

// RedisPersistence stores the record as fields of one Redis hash. HSET and
// HDEL with several fields are atomic, which gives the all-or-nothing write.
type RedisPersistence struct {
	rdb redis.Cmdable
	key string
}

func NewRedisPersistence(rdb redis.Cmdable, key string) *RedisPersistence {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisPersistence{rdb: rdb, key: key}
}

func (p *RedisPersistence) Load(ctx context.Context) (map[string]string, error) {
	entries, err := p.rdb.HGetAll(ctx, p.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", p.key, err)
	}
	return entries, nil
}

func (p *RedisPersistence) Save(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	values := make(map[string]any, len(entries))
	for k, v := range entries {
		values[k] = v
	}
	if err := p.rdb.HSet(ctx, p.key, values).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", p.key, err)
	}
	return nil
}

func (p *RedisPersistence) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := p.rdb.HDel(ctx, p.key, keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", p.key, err)
	}
	return nil
}
