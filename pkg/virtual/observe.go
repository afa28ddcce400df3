package virtual

import (
	"math"
	"time"
)

// Axis selects the scroll axis.
type Axis int

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

// Behavior is a scroll behavior hint.
type Behavior string

const (
	BehaviorAuto    Behavior = "auto"
	BehaviorSmooth  Behavior = "smooth"
	BehaviorInstant Behavior = "instant"
)

// Rect is a content-box size.
type Rect struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BoxSize is one fragment of a border box as reported by a resize observer.
type BoxSize struct {
	InlineSize float64
	BlockSize  float64
}

// Container is anything that can be scrolled: an [Element] or a [Window].
type Container interface {
	ScrollTo(axis Axis, offset float64, behavior Behavior)
	OnScroll(fn func()) (remove func())
}

// Element is a scrollable element.
type Element interface {
	Container
	// OffsetSize is the coarse layout size (offsetWidth/offsetHeight).
	OffsetSize() Rect
	ScrollPosition() (left, top float64)
}

// Window is the browsing viewport.
type Window interface {
	Container
	InnerSize() Rect
	ScrollXY() (x, y float64)
	OnResize(fn func()) (remove func())
}

// ResizeObservable is implemented by elements whose border box can be
// observed. Elements without it are read once and never re-observed.
type ResizeObservable interface {
	ObserveResize(fn func(borderBox []BoxSize)) (stop func())
}

// ScrollEndSource is implemented by containers that emit a native
// scroll-end event.
type ScrollEndSource interface {
	OnScrollEnd(fn func()) (remove func())
}

// Node is a rendered item.
type Node interface {
	Attribute(name string) (string, bool)
	Connected() bool
	OffsetSize() Rect
}

// ResizeEntry is one item resize notification.
type ResizeEntry struct {
	Target        Node
	BorderBoxSize []BoxSize
}

// ItemObserver watches rendered items for size changes.
type ItemObserver interface {
	Observe(n Node)
	Unobserve(n Node)
	Disconnect()
}

// RectObserver observes the scroll container size and reports it to cb.
type RectObserver func(v *Virtualizer, cb func(Rect)) (cleanup func())

// OffsetObserver observes the scroll offset and reports it to cb.
type OffsetObserver func(v *Virtualizer, cb func(offset float64, isScrolling bool)) (cleanup func())

// ScrollFunc executes a scroll to offset on the virtualizer's container.
type ScrollFunc func(offset float64, opts ScrollOptions, v *Virtualizer)

// MeasureFunc reads the exact size of a rendered item along the scroll axis.
type MeasureFunc func(n Node, entry *ResizeEntry, v *Virtualizer) float64

// ScrollOptions are passed to a ScrollFunc.
type ScrollOptions struct {
	Adjustments float64
	Behavior    Behavior
}

func rectFromBox(boxes []BoxSize) (Rect, bool) {
	if len(boxes) == 0 {
		return Rect{}, false
	}
	return Rect{Width: boxes[0].InlineSize, Height: boxes[0].BlockSize}, true
}

// borderBoxOr prefers the precise border box and falls back to a coarser
// read when the platform did not report one.
func borderBoxOr(boxes []BoxSize, fallback func() Rect) Rect {
	if r, ok := rectFromBox(boxes); ok {
		return r
	}
	return fallback()
}

// ObserveElementRect observes an [Element]'s border box. Elements that are
// not [ResizeObservable] are measured once.
func ObserveElementRect(v *Virtualizer, cb func(Rect)) func() {
	el, ok := v.ScrollElement().(Element)
	if !ok {
		return func() {}
	}

	handler := func(r Rect) {
		cb(Rect{Width: math.Round(r.Width), Height: math.Round(r.Height)})
	}
	handler(el.OffsetSize())

	ro, ok := el.(ResizeObservable)
	if !ok {
		return func() {}
	}
	return ro.ObserveResize(func(boxes []BoxSize) {
		run := func() { handler(borderBoxOr(boxes, el.OffsetSize)) }
		v.deferResize(run)
	})
}

// ObserveWindowRect observes a [Window]'s inner size.
func ObserveWindowRect(v *Virtualizer, cb func(Rect)) func() {
	w, ok := v.ScrollElement().(Window)
	if !ok {
		return func() {}
	}
	handler := func() { cb(w.InnerSize()) }
	handler()
	return w.OnResize(handler)
}

// ObserveElementOffset observes an [Element]'s scroll position.
func ObserveElementOffset(v *Virtualizer, cb func(offset float64, isScrolling bool)) func() {
	el, ok := v.ScrollElement().(Element)
	if !ok {
		return func() {}
	}
	return observeOffset(v, el, func() float64 {
		left, top := el.ScrollPosition()
		if v.opts.Horizontal {
			if v.opts.IsRtl {
				return -left
			}
			return left
		}
		return top
	}, cb)
}

// ObserveWindowOffset observes a [Window]'s scroll position.
func ObserveWindowOffset(v *Virtualizer, cb func(offset float64, isScrolling bool)) func() {
	w, ok := v.ScrollElement().(Window)
	if !ok {
		return func() {}
	}
	return observeOffset(v, w, func() float64 {
		x, y := w.ScrollXY()
		if v.opts.Horizontal {
			return x
		}
		return y
	}, cb)
}

// observeOffset wires scroll events of c to cb. Scrolling is considered
// settled on a native scroll-end event when enabled and supported, otherwise
// after IsScrollingResetDelay without a further scroll event.
func observeOffset(v *Virtualizer, c Container, read func() float64, cb func(float64, bool)) func() {
	var offset float64
	endSource, hasScrollEnd := c.(ScrollEndSource)
	useScrollEnd := v.opts.UseScrollendEvent && hasScrollEnd

	fallback := func() {}
	var cancelFallback func()
	if !useScrollEnd {
		fallback = debounce(v.opts.Scheduler, v.opts.IsScrollingResetDelay, func() {
			cb(offset, false)
		}, &cancelFallback)
	}

	handler := func(isScrolling bool) func() {
		return func() {
			offset = read()
			fallback()
			cb(offset, isScrolling)
		}
	}
	onScroll := handler(true)
	onEnd := handler(false)
	onEnd()

	removeScroll := c.OnScroll(onScroll)
	removeEnd := func() {}
	if useScrollEnd {
		removeEnd = endSource.OnScrollEnd(onEnd)
	}
	return func() {
		removeScroll()
		removeEnd()
		if cancelFallback != nil {
			cancelFallback()
		}
	}
}

// debounce returns a function that runs fn after d has passed without
// another call. cancel receives the function that drops the pending run.
func debounce(s Scheduler, d time.Duration, fn func(), cancel *func()) func() {
	var stop func()
	*cancel = func() {
		if stop != nil {
			stop()
			stop = nil
		}
	}
	return func() {
		if stop != nil {
			stop()
		}
		stop = s.AfterFunc(d, func() {
			stop = nil
			fn()
		})
	}
}

// ElementScroll scrolls an [Element] container.
func ElementScroll(offset float64, opts ScrollOptions, v *Virtualizer) {
	if el, ok := v.ScrollElement().(Element); ok {
		el.ScrollTo(v.axis(), offset+opts.Adjustments, opts.Behavior)
	}
}

// WindowScroll scrolls a [Window] container.
func WindowScroll(offset float64, opts ScrollOptions, v *Virtualizer) {
	if w, ok := v.ScrollElement().(Window); ok {
		w.ScrollTo(v.axis(), offset+opts.Adjustments, opts.Behavior)
	}
}

// MeasureElement reads a node's size along the scroll axis, preferring the
// border box of a resize entry.
func MeasureElement(n Node, entry *ResizeEntry, v *Virtualizer) float64 {
	var boxes []BoxSize
	if entry != nil {
		boxes = entry.BorderBoxSize
	}
	if r, ok := rectFromBox(boxes); ok {
		if v.opts.Horizontal {
			return math.Round(r.Width)
		}
		return math.Round(r.Height)
	}
	r := n.OffsetSize()
	if v.opts.Horizontal {
		return r.Width
	}
	return r.Height
}
