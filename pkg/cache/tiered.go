package cache

import (
	"context"
	"errors"
	"time"
)

// Tiered looks keys up in order, fastest layer first. A hit in a lower
// layer is copied into every layer above it with BackfillTTL. Writes and
// deletes go to every layer.
type Tiered struct {
	layers      []Cache
	BackfillTTL time.Duration
}

// NewTiered creates a tiered cache over layers.
func NewTiered(layers ...Cache) *Tiered {
	return &Tiered{layers: layers, BackfillTTL: time.Hour}
}

// Get returns the first hit and backfills the layers above it. Errors from
// a layer are treated as a miss in that layer unless every layer fails.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var errs []error
	for i, layer := range t.layers {
		data, ok, err := layer.Get(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		for _, upper := range t.layers[:i] {
			_ = upper.Set(ctx, key, data, t.BackfillTTL)
		}
		return data, true, nil
	}
	if len(errs) == len(t.layers) && len(errs) > 0 {
		return nil, false, errors.Join(errs...)
	}
	return nil, false, nil
}

// Set writes to every layer.
func (t *Tiered) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	var errs []error
	for _, layer := range t.layers {
		if err := layer.Set(ctx, key, data, ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Delete removes key from every layer.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, layer := range t.layers {
		if err := layer.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear clears every layer that supports it.
func (t *Tiered) Clear(ctx context.Context) error {
	var errs []error
	for _, layer := range t.layers {
		if c, ok := layer.(Clearer); ok {
			if err := c.Clear(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Prune prunes every layer that supports it.
func (t *Tiered) Prune(ctx context.Context) (int, error) {
	var (
		total int
		errs  []error
	)
	for _, layer := range t.layers {
		if p, ok := layer.(Pruner); ok {
			n, err := p.Prune(ctx)
			total += n
			if err != nil {
				errs = append(errs, err)
			}
		}
	}
	return total, errors.Join(errs...)
}

// Close closes every layer.
func (t *Tiered) Close() error {
	var errs []error
	for _, layer := range t.layers {
		if err := layer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Cache   = (*Tiered)(nil)
	_ Clearer = (*Tiered)(nil)
	_ Pruner  = (*Tiered)(nil)
)
