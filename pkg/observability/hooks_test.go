package observability

import (
	"context"
	"testing"
	"time"
)

func TestRegistryDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := Layout().(NoopLayoutHooks); !ok {
		t.Error("Layout() should default to NoopLayoutHooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should default to NoopCacheHooks")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should default to NoopHTTPHooks")
	}

	s := NewStats()
	s.Register()
	SetLayoutHooks(nil)
	if Layout() != LayoutHooks(s) || Cache() != CacheHooks(s) || HTTP() != HTTPHooks(s) {
		t.Error("Register should install stats for every hook and nil should be ignored")
	}

	Reset()
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Reset() should restore no-op hooks")
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := NewStats()

	if snap := s.Snapshot(); snap.Layouts != 0 || snap.Cache != nil {
		t.Errorf("empty snapshot = %+v", snap)
	}

	s.OnLayout(ctx, 100, 3, 40, time.Millisecond)
	s.OnLayout(ctx, 100, 3, 100, time.Millisecond)
	s.OnRangeChange(ctx, 3, 12)
	s.OnScrollRetry(ctx, 42, 2)
	s.OnCacheHit(ctx, "sizes")
	s.OnCacheMiss(ctx, "sizes")
	s.OnCacheMiss(ctx, "layout")
	s.OnCacheSet(ctx, "sizes", 1024)
	s.OnRequest(ctx, "GET", "/v1/sessions/x")
	s.OnResponse(ctx, "GET", "/v1/sessions/{id}", 200, time.Millisecond)
	s.OnResponse(ctx, "GET", "/v1/sessions/{id}", 503, time.Millisecond)

	snap := s.Snapshot()
	if snap.Layouts != 2 || snap.RangeChanges != 1 || snap.ScrollRetry != 1 {
		t.Errorf("layout counts = %+v", snap)
	}
	if snap.Requests != 1 || snap.ServerErrors != 1 {
		t.Errorf("http counts = %+v", snap)
	}
	if got, want := snap.Cache["sizes"], (CacheCounts{Hits: 1, Misses: 1, Sets: 1, Bytes: 1024}); got != want {
		t.Errorf("sizes = %+v, want %+v", got, want)
	}
	if snap.Cache["layout"].Misses != 1 {
		t.Errorf("layout = %+v", snap.Cache["layout"])
	}

	// snapshots are copies
	snap.Cache["sizes"] = CacheCounts{}
	if s.Snapshot().Cache["sizes"].Hits != 1 {
		t.Error("mutating a snapshot changed the stats")
	}
}
