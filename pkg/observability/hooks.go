// Package observability decouples event producers from metrics backends.
//
// The virtualizer reports layout passes, range changes and scroll retries.
// Instrumented caches report hits, misses and writes, and the HTTP server
// reports requests. Each goes to a process-wide hook that defaults to a
// no-op. Install hooks once at startup, before any producer runs:
//
//	stats := observability.NewStats()
//	stats.Register()
//
// [Stats] is the in-process implementation the server uses. Anything else,
// such as a metrics exporter, implements the interfaces directly.
package observability

import (
	"context"
	"sync"
	"time"
)

// LayoutHooks receives virtualizer events.
type LayoutHooks interface {
	// OnLayout records a lane layout pass over count items. reused is the
	// number of leading placements kept from the previous pass.
	OnLayout(ctx context.Context, count, lanes, reused int, duration time.Duration)
	OnRangeChange(ctx context.Context, startIndex, endIndex int)
	// OnScrollRetry records a scroll-to-index attempt that missed its target.
	OnScrollRetry(ctx context.Context, index, attempt int)
}

// CacheHooks receives cache events. keyType is the key's kind, such as
// "sizes", "layout" or "session".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives session API events. path is the route pattern on
// responses and the raw path on requests.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnLayout(context.Context, int, int, int, time.Duration) {}
func (NoopLayoutHooks) OnRangeChange(context.Context, int, int)                {}
func (NoopLayoutHooks) OnScrollRetry(context.Context, int, int)                {}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                       {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

var registry = struct {
	sync.RWMutex
	layout LayoutHooks
	cache  CacheHooks
	http   HTTPHooks
}{layout: NoopLayoutHooks{}, cache: NoopCacheHooks{}, http: NoopHTTPHooks{}}

// SetLayoutHooks installs h. A nil h is ignored.
func SetLayoutHooks(h LayoutHooks) {
	if h == nil {
		return
	}
	registry.Lock()
	registry.layout = h
	registry.Unlock()
}

// SetCacheHooks installs h. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h == nil {
		return
	}
	registry.Lock()
	registry.cache = h
	registry.Unlock()
}

// SetHTTPHooks installs h. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h == nil {
		return
	}
	registry.Lock()
	registry.http = h
	registry.Unlock()
}

func Layout() LayoutHooks {
	registry.RLock()
	defer registry.RUnlock()
	return registry.layout
}

func Cache() CacheHooks {
	registry.RLock()
	defer registry.RUnlock()
	return registry.cache
}

func HTTP() HTTPHooks {
	registry.RLock()
	defer registry.RUnlock()
	return registry.http
}

// Reset restores the no-op hooks.
func Reset() {
	registry.Lock()
	defer registry.Unlock()
	registry.layout = NoopLayoutHooks{}
	registry.cache = NoopCacheHooks{}
	registry.http = NoopHTTPHooks{}
}
