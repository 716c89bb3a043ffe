package middleware

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/asyncsql/asyncsql/client"
)

// MemoryCacheMiddleware caches FetchAll result sets in process memory.
// Enable per call with middleware.WithTTL on the context.
type MemoryCacheMiddleware struct {
	items     map[string]memoryCacheEntry
	mu        sync.RWMutex
	stopClean chan struct{}
	stopOnce  sync.Once
}

type memoryCacheEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCacheMiddleware {
	return &MemoryCacheMiddleware{
		items:     make(map[string]memoryCacheEntry),
		stopClean: make(chan struct{}),
	}
}

func (m *MemoryCacheMiddleware) Name() string { return "MemoryCache" }

func (m *MemoryCacheMiddleware) Init(c *client.Client) error {
	go m.cleanupLoop()
	return nil
}

// Shutdown stops the eviction task. Safe to call more than once.
func (m *MemoryCacheMiddleware) Shutdown() error {
	m.stopOnce.Do(func() { close(m.stopClean) })
	return nil
}

func (m *MemoryCacheMiddleware) Process(ctx context.Context, query string, args []any, next client.QueryFunc) (*client.ResultSet, error) {
	ttl, ok := cacheTTL(ctx)
	if !ok {
		return next(ctx, query, args)
	}

	key := cacheKey(query, args)

	m.mu.RLock()
	entry, hit := m.items[key]
	m.mu.RUnlock()
	if hit && (entry.expiresAt.IsZero() || time.Now().Before(entry.expiresAt)) {
		var rs client.ResultSet
		if err := json.Unmarshal(entry.data, &rs); err == nil {
			return &rs, nil
		}
	}

	rs, err := next(ctx, query, args)
	if err != nil {
		return rs, err
	}

	if data, err := json.Marshal(rs); err == nil {
		var expiresAt time.Time
		if ttl > 0 {
			expiresAt = time.Now().Add(ttl)
		}
		m.mu.Lock()
		m.items[key] = memoryCacheEntry{data: data, expiresAt: expiresAt}
		m.mu.Unlock()
	}
	return rs, nil
}

func (m *MemoryCacheMiddleware) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopClean:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *MemoryCacheMiddleware) evictExpired() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.items {
		if !v.expiresAt.IsZero() && now.After(v.expiresAt) {
			delete(m.items, k)
		}
	}
}
