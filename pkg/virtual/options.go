package virtual

import (
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultOverscan is the number of items rendered beyond each edge.
	DefaultOverscan = 1

	// DefaultIndexAttribute is the node attribute carrying the item index.
	DefaultIndexAttribute = "data-index"

	// DefaultIsScrollingResetDelay is how long scrolling must pause before
	// it is considered settled when no scroll-end event is available.
	DefaultIsScrollingResetDelay = 150 * time.Millisecond

	// fallbackEstimate is used when no estimator was supplied.
	fallbackEstimate = 50.0

	// maxScrollAttempts bounds the scroll-to-index convergence loop.
	maxScrollAttempts = 10
)

// Options configures a [Virtualizer].
//
// Count, GetScrollElement and EstimateSize are required. Missing values are
// replaced by inert defaults and logged rather than rejected.
type Options struct {
	// Count is the number of items.
	Count int

	// GetScrollElement returns the scroll container or nil when it is not
	// available yet. Containers are compared by ==, so use pointer types.
	GetScrollElement func() Container

	// EstimateSize returns the size used until an item has been measured.
	// It is called for every unmeasured item on every layout pass.
	EstimateSize func(index, lanes int) float64

	// GetItemKey maps an index to a stable key. Defaults to [DefaultKey].
	GetItemKey func(index int) string

	// GetItemColSpan returns how many lanes item index occupies. Values
	// below 1 are treated as 1 and values above lanes are clamped.
	GetItemColSpan func(index, lanes int) int

	// RangeExtractor turns the visible range into indexes to render.
	RangeExtractor func(Range) []int

	ObserveElementRect   RectObserver
	ObserveElementOffset OffsetObserver
	ScrollToFn           ScrollFunc
	MeasureElement       MeasureFunc

	// NewItemObserver creates the observer that keeps measured items
	// up to date. Without it items are only measured on explicit calls.
	NewItemObserver func(cb func([]ResizeEntry)) ItemObserver

	// ShouldAdjustScrollPositionOnItemSizeChange overrides the default
	// anchoring rule (adjust when the item starts before the viewport).
	ShouldAdjustScrollPositionOnItemSizeChange func(item Item, delta float64, v *Virtualizer) bool

	// OnChange is called whenever the rendered output may have changed.
	// sync is true while the user is actively scrolling.
	OnChange func(v *Virtualizer, sync bool)

	Scheduler Scheduler
	Logger    *log.Logger

	// Disabled detaches the virtualizer from its container.
	Disabled bool
	Debug    bool

	Horizontal bool
	IsRtl      bool

	Lanes              int
	Gap                float64
	Overscan           int
	PaddingStart       float64
	PaddingEnd         float64
	ScrollPaddingStart float64
	ScrollPaddingEnd   float64
	ScrollMargin       float64

	InitialRect   Rect
	InitialOffset float64
	InitialSizes  []SizeEntry

	IndexAttribute string

	IsScrollingResetDelay time.Duration

	// ResizeNotifyDelay coalesces bursts of item resizes into a single
	// notification. Zero notifies synchronously.
	ResizeNotifyDelay time.Duration

	UseScrollendEvent                   bool
	UseAnimationFrameWithResizeObserver bool
}

// DefaultOptions returns options with every optional field set to its
// default and element observation selected.
func DefaultOptions() Options {
	return Options{
		GetItemKey:            DefaultKey,
		GetItemColSpan:        DefaultColSpan,
		RangeExtractor:        DefaultRangeExtractor,
		ObserveElementRect:    ObserveElementRect,
		ObserveElementOffset:  ObserveElementOffset,
		ScrollToFn:            ElementScroll,
		MeasureElement:        MeasureElement,
		Lanes:                 1,
		Overscan:              DefaultOverscan,
		IndexAttribute:        DefaultIndexAttribute,
		IsScrollingResetDelay: DefaultIsScrollingResetDelay,
	}
}

// WindowOptions returns [DefaultOptions] with window observation selected.
func WindowOptions() Options {
	opts := DefaultOptions()
	opts.ObserveElementRect = ObserveWindowRect
	opts.ObserveElementOffset = ObserveWindowOffset
	opts.ScrollToFn = WindowScroll
	return opts
}

// normalize fills missing fields. It never fails.
func normalize(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.GetScrollElement == nil {
		opts.Logger.Warn("virtualizer created without a scroll element getter")
		opts.GetScrollElement = func() Container { return nil }
	}
	if opts.EstimateSize == nil {
		opts.Logger.Warn("virtualizer created without a size estimator", "fallback", fallbackEstimate)
		opts.EstimateSize = func(int, int) float64 { return fallbackEstimate }
	}
	if opts.Count < 0 {
		opts.Count = 0
	}
	if opts.Lanes < 1 {
		opts.Lanes = 1
	}
	if opts.Overscan < 0 {
		opts.Overscan = 0
	}
	if opts.GetItemKey == nil {
		opts.GetItemKey = DefaultKey
	}
	if opts.GetItemColSpan == nil {
		opts.GetItemColSpan = DefaultColSpan
	}
	if opts.RangeExtractor == nil {
		opts.RangeExtractor = DefaultRangeExtractor
	}
	if opts.ObserveElementRect == nil {
		opts.ObserveElementRect = ObserveElementRect
	}
	if opts.ObserveElementOffset == nil {
		opts.ObserveElementOffset = ObserveElementOffset
	}
	if opts.ScrollToFn == nil {
		opts.ScrollToFn = ElementScroll
	}
	if opts.MeasureElement == nil {
		opts.MeasureElement = MeasureElement
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewLoop()
	}
	if opts.IndexAttribute == "" {
		opts.IndexAttribute = DefaultIndexAttribute
	}
	if opts.IsScrollingResetDelay <= 0 {
		opts.IsScrollingResetDelay = DefaultIsScrollingResetDelay
	}
	return opts
}
