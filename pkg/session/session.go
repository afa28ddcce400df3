// Package session runs live virtualizer sessions against an in-memory
// viewport.
//
// A [Session] bundles everything a host page would own: a window, the
// frame loop, the virtualizer and the rendered item nodes. Every operation
// drives frames until the virtualizer is quiet again, so a session can be
// queried between calls like a rendered page. Sessions are safe for
// concurrent use.
//
// A [Manager] owns many sessions with expiry, and persists measured sizes
// through a [cache.Cache] so that a new session over the same feed starts
// from exact sizes instead of estimates.
//
// # Usage
//
//	s, err := session.New(f, session.Options{Width: 1280, Height: 800})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	s.ScrollToIndex(120, virtual.AlignCenter)
//	view := s.View()
package session

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/masonry/pkg/breakpoint"
	"github.com/matzehuels/masonry/pkg/config"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/feed"
	"github.com/matzehuels/masonry/pkg/headless"
	"github.com/matzehuels/masonry/pkg/virtual"
)

const (
	// DefaultTTL is how long an idle session is kept.
	DefaultTTL = 30 * time.Minute

	// maxFrames bounds how many frames one operation may drive.
	maxFrames = 64

	// maxPasses bounds the render passes per frame.
	maxPasses = 8
)

// Options configures a session.
type Options struct {
	// ID is the session ID. Empty generates a random UUID.
	ID string

	Width  float64
	Height float64

	// Lanes fixes the lane count. Zero resolves it from Breakpoints.
	Lanes       int
	Breakpoints breakpoint.Set

	Layout        config.Layout
	InitialOffset float64
	InitialSizes  []virtual.SizeEntry

	TTL    time.Duration
	Logger *log.Logger
}

// Session is one live viewport over a feed.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	expiresAt time.Time
	ttl       time.Duration
	closed    bool

	feed     *feed.Feed
	feedHash string
	window   *headless.Window
	loop     *virtual.Loop
	v        *virtual.Virtualizer
	vopts    virtual.Options
	surface  *headless.Surface
	tracker  *breakpoint.Tracker
	bp       string
	sizes    map[string]float64
	unmount  func()
}

// New creates and mounts a session over f.
func New(f *feed.Feed, opts Options) (*Session, error) {
	if f == nil {
		return nil, errors.New(errors.ErrCodeInvalidFeed, "feed is required")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "viewport must be positive, got %vx%v", opts.Width, opts.Height)
	}
	if opts.Lanes != 0 {
		if err := errors.ValidateLanes(opts.Lanes); err != nil {
			return nil, err
		}
	}
	if err := errors.ValidateSize("initial offset", opts.InitialOffset); err != nil {
		return nil, err
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	} else if _, err := uuid.Parse(opts.ID); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "session id")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if len(opts.Breakpoints) == 0 {
		opts.Breakpoints = breakpoint.Default()
	}

	now := time.Now()
	s := &Session{
		ID:        opts.ID,
		CreatedAt: now,
		expiresAt: now.Add(opts.TTL),
		ttl:       opts.TTL,
		feed:      f,
		feedHash:  f.Hash(),
		window:    headless.NewWindow(opts.Width, opts.Height),
		loop:      virtual.NewLoop(),
		sizes:     make(map[string]float64),
	}

	vopts := virtual.WindowOptions()
	opts.Layout.Apply(&vopts)
	f.Apply(&vopts)
	vopts.GetScrollElement = func() virtual.Container { return s.window }
	vopts.Scheduler = s.loop
	vopts.Logger = opts.Logger.With("session", s.ID)
	vopts.InitialRect = virtual.Rect{Width: opts.Width, Height: opts.Height}
	vopts.InitialOffset = opts.InitialOffset
	vopts.InitialSizes = opts.InitialSizes

	if opts.Lanes > 0 {
		vopts.Lanes = opts.Lanes
	} else {
		s.tracker = breakpoint.Track(s.window, opts.Breakpoints, s.applyBreakpoint)
		bp := s.tracker.Current()
		bp.Apply(&vopts)
		s.bp = bp.Name
	}

	s.vopts = vopts
	s.v = virtual.New(vopts)
	s.surface = headless.NewSurface(s.v, s.rendered)
	s.unmount = s.v.Mount()
	s.v.Update()
	s.settle()
	return s, nil
}

// applyBreakpoint runs inside Resize, with mu held.
func (s *Session) applyBreakpoint(bp breakpoint.Breakpoint) {
	bp.Apply(&s.vopts)
	s.bp = bp.Name
	s.v.SetOptions(s.vopts)
}

// laneWidth is the cross-axis extent of an item spanning span lanes.
func (s *Session) laneWidth(span int) float64 {
	cross := s.window.InnerSize().Width
	if s.vopts.Horizontal {
		cross = s.window.InnerSize().Height
	}
	lanes := max(s.vopts.Lanes, 1)
	span = min(max(span, 1), lanes)
	one := (cross - s.vopts.Gap*float64(lanes-1)) / float64(lanes)
	return one*float64(span) + s.vopts.Gap*float64(span-1)
}

// rendered is the size an item has once rendered into its lane.
func (s *Session) rendered(index int) virtual.Rect {
	r := s.feed.Rendered(index, s.laneWidth(s.feed.ColSpan(index, s.vopts.Lanes)), s.vopts.Horizontal)
	if size, ok := s.sizes[s.feed.Key(index)]; ok {
		if s.vopts.Horizontal {
			r.Width = size
		} else {
			r.Height = size
		}
	}
	return r
}

// settle renders and runs frames until nothing is queued.
func (s *Session) settle() {
	for range maxFrames {
		s.surface.Settle(maxPasses)
		s.syncContent()
		if s.loop.Pending() == 0 {
			return
		}
		s.loop.Frame()
	}
}

// syncContent bounds window scrolling to the virtualized content.
func (s *Session) syncContent() {
	total := s.v.GetTotalSize()
	if s.vopts.Horizontal {
		s.window.SetContentSize(virtual.Rect{Width: total})
	} else {
		s.window.SetContentSize(virtual.Rect{Height: total})
	}
}

func (s *Session) axis() virtual.Axis {
	if s.vopts.Horizontal {
		return virtual.AxisHorizontal
	}
	return virtual.AxisVertical
}

// do runs fn under the lock and settles afterwards.
func (s *Session) do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.ErrCodeSessionNotFound, "session %s is closed", s.ID)
	}
	if err := fn(); err != nil {
		return err
	}
	s.settle()
	s.expiresAt = time.Now().Add(s.ttl)
	return nil
}

// ScrollTo scrolls programmatically to offset.
func (s *Session) ScrollTo(offset float64) error {
	return s.do(func() error {
		if err := errors.ValidateSize("offset", offset); err != nil {
			return err
		}
		s.v.ScrollToOffset(offset, virtual.ScrollToOptions{})
		return nil
	})
}

// ScrollBy scrolls programmatically by delta.
func (s *Session) ScrollBy(delta float64) error {
	return s.do(func() error {
		s.v.ScrollBy(delta, virtual.BehaviorAuto)
		return nil
	})
}

// Scroll simulates a complete user scroll gesture to offset: scroll
// events while moving, then scroll end and the settle delay.
func (s *Session) Scroll(offset float64) error {
	return s.do(func() error {
		if err := errors.ValidateSize("offset", offset); err != nil {
			return err
		}
		s.window.Drag(s.axis(), offset)
		s.settle()
		s.window.EndDrag()
		s.loop.Advance(s.v.Options().IsScrollingResetDelay)
		return nil
	})
}

// ScrollToIndex scrolls until item index is aligned, following size
// changes of the items rendered on the way.
func (s *Session) ScrollToIndex(index int, align virtual.Align) error {
	return s.do(func() error {
		if index < 0 || index >= s.feed.Len() {
			return errors.New(errors.ErrCodeInvalidInput, "index %d out of range [0, %d)", index, s.feed.Len())
		}
		s.v.ScrollToIndex(index, virtual.ScrollToOptions{Align: align})
		return nil
	})
}

// ScrollToKey is ScrollToIndex by item key.
func (s *Session) ScrollToKey(key string, align virtual.Align) error {
	i, ok := s.feed.IndexOf(key)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "item %q not found", key)
	}
	return s.ScrollToIndex(i, align)
}

// Resize changes the viewport, which may switch breakpoints.
func (s *Session) Resize(width, height float64) error {
	return s.do(func() error {
		if width <= 0 || height <= 0 {
			return errors.New(errors.ErrCodeInvalidInput, "viewport must be positive, got %vx%v", width, height)
		}
		s.window.Resize(width, height)
		return nil
	})
}

// SetItemSize changes the rendered size of the item with key, as when an
// image finishes loading. The next render measures it.
func (s *Session) SetItemSize(key string, size float64) error {
	return s.do(func() error {
		if _, ok := s.feed.IndexOf(key); !ok {
			return errors.New(errors.ErrCodeNotFound, "item %q not found", key)
		}
		if size <= 0 || size != size {
			return errors.New(errors.ErrCodeInvalidInput, "size must be positive, got %v", size)
		}
		s.sizes[key] = size
		return nil
	})
}

// Remeasure drops every measurement and renders again from estimates.
func (s *Session) Remeasure() error {
	return s.do(func() error {
		s.v.Measure()
		return nil
	})
}

// Advance moves the session clock, firing debounce and settle timers.
func (s *Session) Advance(d time.Duration) error {
	return s.do(func() error {
		s.loop.Advance(d)
		return nil
	})
}

// Sizes returns a snapshot of the measured sizes.
func (s *Session) Sizes() []virtual.SizeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.Sizes().Snapshot()
}

// FeedHash returns the hash of the session's feed.
func (s *Session) FeedHash() string { return s.feedHash }

// Horizontal reports whether the session scrolls horizontally.
func (s *Session) Horizontal() bool { return s.vopts.Horizontal }

// Expired reports whether the session has been idle past its TTL.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.After(s.expiresAt)
}

// Close unmounts the virtualizer. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// closeAndSnapshot closes the session and returns its final offset and
// sizes, read under the same lock so no action lands in between.
func (s *Session) closeAndSnapshot() (offset float64, sizes []virtual.SizeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offset = s.v.ScrollOffset()
	sizes = s.v.Sizes().Snapshot()
	s.closeLocked()
	return offset, sizes
}

func (s *Session) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	if s.tracker != nil {
		s.tracker.Stop()
	}
	s.unmount()
}
