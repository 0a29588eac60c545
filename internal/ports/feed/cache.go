package feed

import (
	"context"
	"time"
)

// FeedCache stores the rendered RSS document.
type FeedCache interface {
	// Get returns nil, nil on a cache miss.
	Get(ctx context.Context) ([]byte, error)
	Set(ctx context.Context, body []byte, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
