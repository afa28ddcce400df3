package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/masonry/pkg/observability"
)

// Instrument reports every Get and Set of c to the registered cache hooks.
// The key type is the key's first colon-separated segment after prefix.
func Instrument(c Cache, prefix string) Cache {
	return &instrumented{Cache: c, prefix: prefix}
}

type instrumented struct {
	Cache
	prefix string
}

func (c *instrumented) keyType(key string) string {
	kind, _, _ := strings.Cut(strings.TrimPrefix(key, c.prefix), ":")
	return kind
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, c.keyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, c.keyType(key))
		}
	}
	return data, ok, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, c.keyType(key), len(data))
	}
	return err
}

func (c *instrumented) Clear(ctx context.Context) error {
	if cl, ok := c.Cache.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return nil
}

func (c *instrumented) Prune(ctx context.Context) (int, error) {
	if p, ok := c.Cache.(Pruner); ok {
		return p.Prune(ctx)
	}
	return 0, nil
}
