package middleware

import (
	"context"
	"fmt"
	"time"
)

type cacheTTLKey struct{}

// WithTTL marks queries run under ctx as cacheable for d. A zero duration
// disables caching for the call; a negative duration caches without
// expiration.
func WithTTL(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, cacheTTLKey{}, d)
}

// cacheTTL extracts the requested TTL, reporting whether caching applies.
func cacheTTL(ctx context.Context) (time.Duration, bool) {
	v := ctx.Value(cacheTTLKey{})
	if v == nil {
		return 0, false
	}
	d, ok := v.(time.Duration)
	if !ok || d == 0 {
		return 0, false
	}
	return d, true
}

// cacheKey derives a stable key from the rendered query and its native
// arguments.
func cacheKey(query string, args []any) string {
	return fmt.Sprintf("asq:cache:%s:%v", query, args)
}
