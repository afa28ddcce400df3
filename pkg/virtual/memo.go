package virtual

import "time"

// Memo is a dependency-tracked compute cache.
//
// Each Get evaluates the dependency function; compute runs only when the
// resulting tuple differs (by ==) from the previous one. The tuple type D is
// usually a small struct of comparable fields, which keeps per-frame
// re-evaluation O(1) while nothing relevant changed.
type Memo[D comparable, R any] struct {
	key      string
	deps     func() D
	compute  func(D) R
	onChange func(R)
	trace    func(key string, took time.Duration)

	last   D
	result R
	primed bool
}

// NewMemo creates a memo named key. The key only appears in traces.
func NewMemo[D comparable, R any](key string, deps func() D, compute func(D) R) *Memo[D, R] {
	return &Memo[D, R]{key: key, deps: deps, compute: compute}
}

// OnChange registers fn to run after every recomputation.
func (m *Memo[D, R]) OnChange(fn func(R)) *Memo[D, R] {
	m.onChange = fn
	return m
}

// Trace registers fn to receive the duration of every recomputation.
func (m *Memo[D, R]) Trace(fn func(key string, took time.Duration)) *Memo[D, R] {
	m.trace = fn
	return m
}

// Get returns the cached result, recomputing it if the dependencies changed.
// After UpdateDeps, and while the dependencies stay unchanged, Get returns
// the last computed result, which is the zero R if nothing was computed yet.
func (m *Memo[D, R]) Get() R {
	d := m.deps()
	if m.primed && d == m.last {
		return m.result
	}

	var start time.Time
	if m.trace != nil {
		start = time.Now()
	}

	m.last = d
	m.primed = true
	m.result = m.compute(d)

	if m.trace != nil {
		m.trace(m.key, time.Since(start))
	}
	if m.onChange != nil {
		m.onChange(m.result)
	}
	return m.result
}

// UpdateDeps overwrites the tracked dependencies without recomputing. A
// subsequent Get with the same dependencies is a no-op.
func (m *Memo[D, R]) UpdateDeps(d D) {
	m.last = d
	m.primed = true
}

// Invalidate forces the next Get to recompute.
func (m *Memo[D, R]) Invalidate() {
	m.primed = false
}
