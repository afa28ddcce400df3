package observability

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Stats counts events in process. It implements every hook interface, so
// one value can be registered for all of them.
type Stats struct {
	layouts      atomic.Int64
	rangeChanges atomic.Int64
	scrollRetry  atomic.Int64
	requests     atomic.Int64
	serverErrors atomic.Int64

	mu    sync.Mutex
	cache map[string]*CacheCounts
}

// CacheCounts are the cache events for one key type.
type CacheCounts struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Bytes  int64 `json:"bytes"`
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Layouts      int64                  `json:"layouts"`
	RangeChanges int64                  `json:"rangeChanges"`
	ScrollRetry  int64                  `json:"scrollRetries"`
	Requests     int64                  `json:"requests"`
	ServerErrors int64                  `json:"serverErrors"`
	Cache        map[string]CacheCounts `json:"cache,omitempty"`
}

func NewStats() *Stats {
	return &Stats{cache: make(map[string]*CacheCounts)}
}

// Register installs s as the layout, cache and HTTP hooks.
func (s *Stats) Register() {
	SetLayoutHooks(s)
	SetCacheHooks(s)
	SetHTTPHooks(s)
}

func (s *Stats) OnLayout(context.Context, int, int, int, time.Duration) { s.layouts.Add(1) }
func (s *Stats) OnRangeChange(context.Context, int, int)                { s.rangeChanges.Add(1) }
func (s *Stats) OnScrollRetry(context.Context, int, int)                { s.scrollRetry.Add(1) }

func (s *Stats) counts(keyType string) *CacheCounts {
	c, ok := s.cache[keyType]
	if !ok {
		c = &CacheCounts{}
		s.cache[keyType] = c
	}
	return c
}

func (s *Stats) OnCacheHit(_ context.Context, keyType string) {
	s.mu.Lock()
	s.counts(keyType).Hits++
	s.mu.Unlock()
}

func (s *Stats) OnCacheMiss(_ context.Context, keyType string) {
	s.mu.Lock()
	s.counts(keyType).Misses++
	s.mu.Unlock()
}

func (s *Stats) OnCacheSet(_ context.Context, keyType string, size int) {
	s.mu.Lock()
	c := s.counts(keyType)
	c.Sets++
	c.Bytes += int64(size)
	s.mu.Unlock()
}

func (s *Stats) OnRequest(context.Context, string, string) { s.requests.Add(1) }

func (s *Stats) OnResponse(_ context.Context, _, _ string, status int, _ time.Duration) {
	if status >= 500 {
		s.serverErrors.Add(1)
	}
}

// Snapshot copies the current counts.
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Layouts:      s.layouts.Load(),
		RangeChanges: s.rangeChanges.Load(),
		ScrollRetry:  s.scrollRetry.Load(),
		Requests:     s.requests.Load(),
		ServerErrors: s.serverErrors.Load(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cache) > 0 {
		snap.Cache = make(map[string]CacheCounts, len(s.cache))
		for k, c := range s.cache {
			snap.Cache[k] = *c
		}
	}
	return snap
}

var (
	_ LayoutHooks = (*Stats)(nil)
	_ CacheHooks  = (*Stats)(nil)
	_ HTTPHooks   = (*Stats)(nil)
)
