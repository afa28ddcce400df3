package headless

import (
	"github.com/matzehuels/masonry/pkg/virtual"
)

// ScrollCall records one programmatic scroll.
type ScrollCall struct {
	Axis     virtual.Axis
	Offset   float64
	Behavior virtual.Behavior
}

// listeners is an ordered set of callbacks addressed by id.
type listeners[F any] struct {
	next  int
	order []int
	fns   map[int]F
}

func (l *listeners[F]) add(fn F) func() {
	if l.fns == nil {
		l.fns = make(map[int]F)
	}
	l.next++
	id := l.next
	l.fns[id] = fn
	l.order = append(l.order, id)
	return func() { delete(l.fns, id) }
}

func (l *listeners[F]) each(call func(F)) {
	for _, id := range l.order {
		if fn, ok := l.fns[id]; ok {
			call(fn)
		}
	}
}

func (l *listeners[F]) len() int { return len(l.fns) }

// scrollState is shared by Element and Window.
type scrollState struct {
	size     virtual.Rect
	content  virtual.Rect
	x, y     float64
	calls    []ScrollCall
	onScroll listeners[func()]
	onEnd    listeners[func()]

	// Dispatch queues events as frame callbacks. Nil delivers them
	// synchronously.
	Dispatch virtual.Scheduler
}

func (s *scrollState) emit(fn func()) {
	if s.Dispatch != nil {
		s.Dispatch.RequestFrame(fn)
		return
	}
	fn()
}

func (s *scrollState) clamp(axis virtual.Axis, offset float64) float64 {
	offset = max(offset, 0)
	switch axis {
	case virtual.AxisHorizontal:
		if s.content.Width > 0 {
			offset = min(offset, max(s.content.Width-s.size.Width, 0))
		}
	default:
		if s.content.Height > 0 {
			offset = min(offset, max(s.content.Height-s.size.Height, 0))
		}
	}
	return offset
}

func (s *scrollState) scrollTo(axis virtual.Axis, offset float64, behavior virtual.Behavior) {
	s.calls = append(s.calls, ScrollCall{Axis: axis, Offset: offset, Behavior: behavior})
	s.move(axis, offset)
	s.emit(func() {
		s.onScroll.each(func(fn func()) { fn() })
		s.onEnd.each(func(fn func()) { fn() })
	})
}

func (s *scrollState) move(axis virtual.Axis, offset float64) {
	offset = s.clamp(axis, offset)
	if axis == virtual.AxisHorizontal {
		s.x = offset
	} else {
		s.y = offset
	}
}

// Drag simulates a user scroll: the position moves and scroll listeners
// fire, but no scroll-end event is sent until EndDrag.
func (s *scrollState) Drag(axis virtual.Axis, offset float64) {
	s.move(axis, offset)
	s.emit(func() { s.onScroll.each(func(fn func()) { fn() }) })
}

// EndDrag sends the scroll-end event of a user scroll.
func (s *scrollState) EndDrag() {
	s.emit(func() { s.onEnd.each(func(fn func()) { fn() }) })
}

// SetContentSize bounds scrolling to content minus the viewport. A zero
// dimension leaves that axis unbounded.
func (s *scrollState) SetContentSize(r virtual.Rect) { s.content = r }

// Calls returns every programmatic scroll so far.
func (s *scrollState) Calls() []ScrollCall { return s.calls }

// Listeners returns the number of live scroll and scroll-end listeners.
func (s *scrollState) Listeners() int { return s.onScroll.len() + s.onEnd.len() }

// Element is an in-memory scrollable element. It supports border-box resize
// observation and native scroll-end events.
type Element struct {
	scrollState
	onResize listeners[func([]virtual.BoxSize)]
}

// NewElement creates an element with the given viewport size.
func NewElement(width, height float64) *Element {
	return &Element{scrollState: scrollState{size: virtual.Rect{Width: width, Height: height}}}
}

func (e *Element) OffsetSize() virtual.Rect { return e.size }

func (e *Element) ScrollPosition() (left, top float64) { return e.x, e.y }

func (e *Element) ScrollTo(axis virtual.Axis, offset float64, behavior virtual.Behavior) {
	e.scrollTo(axis, offset, behavior)
}

func (e *Element) OnScroll(fn func()) func() { return e.onScroll.add(fn) }

func (e *Element) OnScrollEnd(fn func()) func() { return e.onEnd.add(fn) }

func (e *Element) ObserveResize(fn func([]virtual.BoxSize)) func() { return e.onResize.add(fn) }

// Resize changes the viewport size and notifies resize observers.
func (e *Element) Resize(width, height float64) {
	e.size = virtual.Rect{Width: width, Height: height}
	boxes := []virtual.BoxSize{{InlineSize: width, BlockSize: height}}
	e.emit(func() {
		e.onResize.each(func(fn func([]virtual.BoxSize)) { fn(boxes) })
	})
}

// Listeners returns the number of live scroll, scroll-end and resize
// listeners.
func (e *Element) Listeners() int { return e.scrollState.Listeners() + e.onResize.len() }

// Static wraps e so that it exposes neither resize observation nor
// scroll-end events, like a platform lacking both.
func Static(e *Element) virtual.Element { return staticElement{e} }

type staticElement struct{ e *Element }

func (s staticElement) OffsetSize() virtual.Rect             { return s.e.OffsetSize() }
func (s staticElement) ScrollPosition() (float64, float64)   { return s.e.ScrollPosition() }
func (s staticElement) OnScroll(fn func()) func()             { return s.e.OnScroll(fn) }
func (s staticElement) ScrollTo(a virtual.Axis, o float64, b virtual.Behavior) {
	s.e.ScrollTo(a, o, b)
}

// Window is an in-memory browsing viewport.
type Window struct {
	scrollState
	onResize listeners[func()]
}

// NewWindow creates a window with the given inner size.
func NewWindow(width, height float64) *Window {
	return &Window{scrollState: scrollState{size: virtual.Rect{Width: width, Height: height}}}
}

func (w *Window) InnerSize() virtual.Rect { return w.size }

func (w *Window) ScrollXY() (x, y float64) { return w.x, w.y }

func (w *Window) ScrollTo(axis virtual.Axis, offset float64, behavior virtual.Behavior) {
	w.scrollTo(axis, offset, behavior)
}

func (w *Window) OnScroll(fn func()) func() { return w.onScroll.add(fn) }

func (w *Window) OnScrollEnd(fn func()) func() { return w.onEnd.add(fn) }

func (w *Window) OnResize(fn func()) func() { return w.onResize.add(fn) }

// Resize changes the inner size and fires resize listeners.
func (w *Window) Resize(width, height float64) {
	w.size = virtual.Rect{Width: width, Height: height}
	w.emit(func() { w.onResize.each(func(fn func()) { fn() }) })
}

// Listeners returns the number of live scroll, scroll-end and resize
// listeners.
func (w *Window) Listeners() int { return w.scrollState.Listeners() + w.onResize.len() }

var (
	_ virtual.Element          = (*Element)(nil)
	_ virtual.ResizeObservable = (*Element)(nil)
	_ virtual.ScrollEndSource  = (*Element)(nil)
	_ virtual.Window           = (*Window)(nil)
	_ virtual.ScrollEndSource  = (*Window)(nil)
)
