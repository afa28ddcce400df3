package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/feed"
	"github.com/matzehuels/masonry/pkg/session"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// SizesTTL is the expiry of persisted size snapshots.
	SizesTTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
		SizesTTL: session.DefaultSizesTTL,
	}
}

// Execute runs the layout and render stages over f with caching.
func (r *Runner) Execute(ctx context.Context, f *feed.Feed, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if f == nil {
		return nil, errors.New(errors.ErrCodeInvalidFeed, "feed is required")
	}

	result := &Result{FeedHash: f.Hash()}
	result.Stats.ItemCount = f.Len()

	// Stage 1: Layout
	layoutStart := time.Now()
	layout, info, err := r.LayoutWithCacheInfo(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = layout
	result.CacheInfo = info
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Measured = len(layout.Sizes)

	r.Logger.Info("computed layout",
		"items", f.Len(),
		"measured", len(layout.Sizes),
		"lanes", layout.View.Lanes,
		"duration", result.Stats.LayoutTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, err := Render(layout, f, opts.Formats)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Debug("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LayoutWithCacheInfo lays out f with caching and returns cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, f *feed.Feed, opts Options) (Layout, CacheInfo, error) {
	var info CacheInfo
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return Layout{}, info, err
	}
	if f == nil {
		return Layout{}, info, errors.New(errors.ErrCodeInvalidFeed, "feed is required")
	}

	feedHash := f.Hash()
	cacheKey := r.Keyer.LayoutKey(feedHash, opts.LayoutKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached Layout
			if err := json.Unmarshal(data, &cached); err == nil {
				info.LayoutHit = true
				return cached, info, nil
			}
			// If deserialization fails, fall through to recompute
		}
	}

	initial, hit, err := session.LoadSizes(ctx, r.Cache, r.Keyer, feedHash, opts.Layout.Horizontal)
	if err != nil {
		r.Logger.Warn("could not load sizes", "err", err)
	}
	info.SizesHit = hit && !opts.Refresh
	if opts.Refresh {
		initial = nil
	}

	layout, err := GenerateLayout(f, opts.sessionOptions(initial), opts)
	if err != nil {
		return Layout{}, info, err
	}

	if err := session.SaveSizes(ctx, r.Cache, r.Keyer, feedHash, opts.Layout.Horizontal, layout.Sizes, r.SizesTTL); err != nil {
		r.Logger.Warn("could not save sizes", "err", err)
	}
	if data, err := json.Marshal(layout); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, TTLLayout)
	}
	return layout, info, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, f *feed.Feed, opts Options) (Layout, error) {
	layout, _, err := r.LayoutWithCacheInfo(ctx, f, opts)
	return layout, err
}

// GenerateLayout lays out f in a fresh session without caching.
func GenerateLayout(f *feed.Feed, sopts session.Options, opts Options) (Layout, error) {
	s, err := session.New(f, sopts)
	if err != nil {
		return Layout{}, err
	}
	defer s.Close()

	if opts.Exhaustive {
		if err := walk(s); err != nil {
			return Layout{}, err
		}
		if err := s.ScrollTo(opts.Offset); err != nil {
			return Layout{}, err
		}
	}
	if opts.ScrollTo != "" {
		if err := s.ScrollToKey(opts.ScrollTo, opts.Align); err != nil {
			return Layout{}, err
		}
	}

	return Layout{
		View:  s.View(),
		Items: s.Measurements(),
		Sizes: s.Sizes(),
	}, nil
}

// walk scrolls through the whole feed one viewport at a time so every
// item gets rendered and measured once.
func walk(s *session.Session) error {
	view := s.View()
	step := view.Viewport.Height
	if s.Horizontal() {
		step = view.Viewport.Width
	}
	for offset := 0.0; ; offset += step {
		if err := s.ScrollTo(offset); err != nil {
			return err
		}
		view = s.View()
		// Measured items can grow the content, so re-read the total each
		// step.
		if offset+step >= view.TotalSize || view.Range == nil || view.Range.End >= view.Count-1 {
			return nil
		}
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
