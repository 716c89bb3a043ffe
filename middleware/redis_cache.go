package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/asyncsql/asyncsql/client"
)

// RedisCacheMiddleware caches FetchAll result sets in Redis, shared across
// processes. Enable per call with middleware.WithTTL on the context; a
// negative TTL stores the entry without expiration (Redis TTL 0).
type RedisCacheMiddleware struct {
	Client *redis.Client
}

func NewRedisCache(opt *redis.Options) *RedisCacheMiddleware {
	return &RedisCacheMiddleware{Client: redis.NewClient(opt)}
}

func (m *RedisCacheMiddleware) Name() string { return "RedisCache" }

func (m *RedisCacheMiddleware) Init(c *client.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Ping(ctx).Err()
}

func (m *RedisCacheMiddleware) Shutdown() error {
	return m.Client.Close()
}

func (m *RedisCacheMiddleware) Process(ctx context.Context, query string, args []any, next client.QueryFunc) (*client.ResultSet, error) {
	ttl, ok := cacheTTL(ctx)
	if !ok {
		return next(ctx, query, args)
	}
	if ttl < 0 {
		ttl = 0 // Redis treats 0 as no expiration
	}

	key := cacheKey(query, args)

	if val, err := m.Client.Get(ctx, key).Result(); err == nil {
		var rs client.ResultSet
		if err := json.Unmarshal([]byte(val), &rs); err == nil {
			return &rs, nil
		}
	}

	rs, err := next(ctx, query, args)
	if err != nil {
		return rs, err
	}

	if data, err := json.Marshal(rs); err == nil {
		m.Client.Set(ctx, key, data, ttl)
	}
	return rs, nil
}
