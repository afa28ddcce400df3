package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/virtual"
)

// DefaultSizesTTL is how long persisted size snapshots are kept.
const DefaultSizesTTL = 7 * 24 * time.Hour

// LoadSizes reads the size snapshot for a feed. A missing or undecodable
// entry is a miss, not an error.
func LoadSizes(ctx context.Context, c cache.Cache, k cache.Keyer, feedHash string, horizontal bool) ([]virtual.SizeEntry, bool, error) {
	data, ok, err := c.Get(ctx, k.SizesKey(feedHash, cache.SizesKeyOpts{Horizontal: horizontal}))
	if err != nil || !ok {
		return nil, false, err
	}
	var entries []virtual.SizeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, nil
	}
	return entries, true, nil
}

// SaveSizes persists a size snapshot for a feed. Empty snapshots are not
// written.
func SaveSizes(ctx context.Context, c cache.Cache, k cache.Keyer, feedHash string, horizontal bool, entries []virtual.SizeEntry, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode sizes: %w", err)
	}
	return c.Set(ctx, k.SizesKey(feedHash, cache.SizesKeyOpts{Horizontal: horizontal}), data, ttl)
}

// savedState is what survives a session for a later resume.
type savedState struct {
	FeedHash string  `json:"feed_hash"`
	Offset   float64 `json:"offset"`
}

func loadState(ctx context.Context, c cache.Cache, k cache.Keyer, id string) (savedState, bool) {
	data, ok, err := c.Get(ctx, k.SessionKey(id))
	if err != nil || !ok {
		return savedState{}, false
	}
	var st savedState
	if err := json.Unmarshal(data, &st); err != nil {
		return savedState{}, false
	}
	return st, true
}

func saveState(ctx context.Context, c cache.Cache, k cache.Keyer, id string, st savedState, ttl time.Duration) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.Set(ctx, k.SessionKey(id), data, ttl)
}
