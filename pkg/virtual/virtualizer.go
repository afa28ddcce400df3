package virtual

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/observability"
)

// Direction is the direction of the last scroll.
type Direction string

const (
	DirectionNone     Direction = ""
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// VirtualItems is the projection handed to the renderer.
type VirtualItems struct {
	Items []Item `json:"items"`
	Lanes int    `json:"lanes"`
}

// Virtualizer is the stateful masonry virtualization engine.
//
// Its lifecycle is Unmounted → Mounted (observing) → Unmounted. Update
// attaches to the container returned by GetScrollElement; a different
// container causes a full cleanup before re-subscribing.
type Virtualizer struct {
	opts    Options
	logger  *log.Logger
	fnEpoch uint64

	scrollElement     Container
	isScrolling       bool
	scrollDirection   Direction
	scrollRect        *Rect
	scrollOffset      *float64
	scrollAdjustments float64
	rng               *Range

	sizes        *SizeCache
	laneCaches   map[int]*laneCache
	measurements []Item
	elements     map[string]Node
	observer     ItemObserver
	unsubs       []func()
	cancelNotify func()

	measurementsGen uint64
	indexesGen      uint64

	measurementsMemo *Memo[measureDeps, []Item]
	rangeMemo        *Memo[rangeDeps, *Range]
	indexesMemo      *Memo[indexDeps, []int]
	itemsMemo        *Memo[itemsDeps, []Item]
	totalMemo        *Memo[totalDeps, float64]
	notifyMemo       *Memo[notifyDeps, notifyDeps]
}

type measureDeps struct {
	count        int
	lanes        int
	gap          float64
	paddingStart float64
	scrollMargin float64
	disabled     bool
	fnEpoch      uint64
	sizesVersion uint64
}

type rangeDeps struct {
	measurementsGen uint64
	outerSize       float64
	offset          float64
	lanes           int
}

type indexDeps struct {
	fnEpoch  uint64
	overscan int
	count    int
	hasRange bool
	start    int
	end      int
}

type itemsDeps struct {
	indexesGen      uint64
	measurementsGen uint64
}

type totalDeps struct {
	measurementsGen uint64
	lanes           int
	paddingStart    float64
	paddingEnd      float64
	scrollMargin    float64
}

type notifyDeps struct {
	isScrolling bool
	hasRange    bool
	start       int
	end         int
}

// New creates an unmounted virtualizer.
func New(opts Options) *Virtualizer {
	v := &Virtualizer{
		sizes:      NewSizeCache(),
		laneCaches: make(map[int]*laneCache),
		elements:   make(map[string]Node),
	}
	v.setOptions(opts)
	if len(v.opts.InitialSizes) > 0 {
		v.sizes.Restore(v.opts.InitialSizes)
	}

	v.measurementsMemo = NewMemo("getMeasurements", v.measureDeps, v.computeMeasurements)
	v.rangeMemo = NewMemo("calculateRange", v.rangeDeps, v.computeRange)
	v.indexesMemo = NewMemo("getVirtualIndexes", v.indexDeps, v.computeIndexes)
	v.itemsMemo = NewMemo("getVirtualItems", v.itemsDeps, v.computeItems)
	v.totalMemo = NewMemo("getTotalSize", v.totalDeps, v.computeTotal)
	v.notifyMemo = NewMemo("maybeNotify", v.notifyDeps, func(d notifyDeps) notifyDeps { return d }).
		OnChange(func(d notifyDeps) { v.notify(d.isScrolling) })
	v.notifyMemo.UpdateDeps(notifyDeps{})

	if v.opts.Debug {
		trace := func(key string, took time.Duration) {
			v.logger.Debug("recomputed", "memo", key, "took", took)
		}
		v.measurementsMemo.Trace(trace)
		v.rangeMemo.Trace(trace)
		v.indexesMemo.Trace(trace)
		v.itemsMemo.Trace(trace)
		v.totalMemo.Trace(trace)
	}
	return v
}

// SetOptions replaces the options. Function-valued options are assumed to
// have changed, so the next read recomputes the layout.
func (v *Virtualizer) SetOptions(opts Options) {
	v.setOptions(opts)
}

func (v *Virtualizer) setOptions(opts Options) {
	v.opts = normalize(opts)
	v.logger = v.opts.Logger
	v.fnEpoch++
}

// Options returns the normalized options.
func (v *Virtualizer) Options() Options { return v.opts }

// =============================================================================
// Lifecycle
// =============================================================================

// Mount returns the cleanup function to call on unmount.
func (v *Virtualizer) Mount() (cleanup func()) {
	return v.cleanup
}

// Update attaches to the current scroll container. It is a no-op when the
// container has not changed.
func (v *Virtualizer) Update() {
	var el Container
	if !v.opts.Disabled {
		el = v.opts.GetScrollElement()
	}
	if el == v.scrollElement {
		return
	}

	v.cleanup()
	if el == nil {
		v.maybeNotify()
		return
	}
	v.scrollElement = el

	obs := v.itemObserver()
	for _, n := range v.elements {
		obs.Observe(n)
	}

	v.scrollToOffset(v.ScrollOffset(), ScrollOptions{})

	v.unsubs = append(v.unsubs, v.opts.ObserveElementRect(v, func(r Rect) {
		v.scrollRect = &r
		v.maybeNotify()
	}))
	v.unsubs = append(v.unsubs, v.opts.ObserveElementOffset(v, func(offset float64, isScrolling bool) {
		v.scrollAdjustments = 0
		switch {
		case !isScrolling:
			v.scrollDirection = DirectionNone
		case v.ScrollOffset() < offset:
			v.scrollDirection = DirectionForward
		default:
			v.scrollDirection = DirectionBackward
		}
		v.scrollOffset = &offset
		v.isScrolling = isScrolling
		v.maybeNotify()
	}))
}

// cleanup drops every subscription and pending timer.
func (v *Virtualizer) cleanup() {
	if v.observer != nil {
		v.observer.Disconnect()
		v.observer = nil
	}
	for _, unsub := range v.unsubs {
		unsub()
	}
	v.unsubs = nil
	if v.cancelNotify != nil {
		v.cancelNotify()
		v.cancelNotify = nil
	}
	v.scrollElement = nil
}

// Mounted reports whether a scroll container is attached.
func (v *Virtualizer) Mounted() bool { return v.scrollElement != nil }

// ScrollElement returns the attached container, or nil.
func (v *Virtualizer) ScrollElement() Container { return v.scrollElement }

func (v *Virtualizer) axis() Axis {
	if v.opts.Horizontal {
		return AxisHorizontal
	}
	return AxisVertical
}

func (v *Virtualizer) itemObserver() ItemObserver {
	if v.observer != nil {
		return v.observer
	}
	if v.opts.NewItemObserver == nil {
		v.observer = nopObserver{}
		return v.observer
	}
	v.observer = v.opts.NewItemObserver(func(entries []ResizeEntry) {
		for _, entry := range entries {
			run := func() { v.measureNode(entry.Target, &entry) }
			v.deferResize(run)
		}
	})
	return v.observer
}

type nopObserver struct{}

func (nopObserver) Observe(Node)   {}
func (nopObserver) Unobserve(Node) {}
func (nopObserver) Disconnect()    {}

// deferResize runs fn now or on the next frame.
func (v *Virtualizer) deferResize(fn func()) {
	if v.opts.UseAnimationFrameWithResizeObserver {
		v.opts.Scheduler.RequestFrame(fn)
		return
	}
	fn()
}

// =============================================================================
// Notification
// =============================================================================

func (v *Virtualizer) notify(sync bool) {
	if v.opts.OnChange != nil {
		v.opts.OnChange(v, sync)
	}
}

func (v *Virtualizer) notifyDeps() notifyDeps {
	d := notifyDeps{isScrolling: v.isScrolling}
	if r := v.rangeMemo.Get(); r != nil {
		d.hasRange = true
		d.start = r.StartIndex
		d.end = r.EndIndex
	}
	return d
}

// maybeNotify notifies only when scrolling state or range changed since the
// last notification or render.
func (v *Virtualizer) maybeNotify() {
	v.notifyMemo.Get()
}

// scheduleNotify notifies after a resize, debounced by ResizeNotifyDelay.
func (v *Virtualizer) scheduleNotify() {
	if v.opts.ResizeNotifyDelay <= 0 {
		v.notify(false)
		return
	}
	if v.cancelNotify != nil {
		v.cancelNotify()
	}
	v.cancelNotify = v.opts.Scheduler.AfterFunc(v.opts.ResizeNotifyDelay, func() {
		v.cancelNotify = nil
		v.notify(false)
	})
}

// =============================================================================
// State
// =============================================================================

// Size returns the viewport size along the scroll axis.
func (v *Virtualizer) Size() float64 {
	if v.opts.Disabled {
		v.scrollRect = nil
		return 0
	}
	if v.scrollRect == nil {
		r := v.opts.InitialRect
		v.scrollRect = &r
	}
	if v.opts.Horizontal {
		return v.scrollRect.Width
	}
	return v.scrollRect.Height
}

// ScrollRect returns the last observed container size.
func (v *Virtualizer) ScrollRect() Rect {
	if v.scrollRect == nil {
		return v.opts.InitialRect
	}
	return *v.scrollRect
}

// ScrollOffset returns the last observed scroll offset.
func (v *Virtualizer) ScrollOffset() float64 {
	if v.opts.Disabled {
		v.scrollOffset = nil
		return 0
	}
	if v.scrollOffset == nil {
		o := v.opts.InitialOffset
		v.scrollOffset = &o
	}
	return *v.scrollOffset
}

// IsScrolling reports whether the container is actively scrolling.
func (v *Virtualizer) IsScrolling() bool { return v.isScrolling }

// ScrollDirection returns the direction of the active scroll.
func (v *Virtualizer) ScrollDirection() Direction { return v.scrollDirection }

// Sizes returns the exact measurement cache.
func (v *Virtualizer) Sizes() *SizeCache { return v.sizes }

// Range returns the current visible range before overscan, or nil when
// nothing is visible.
func (v *Virtualizer) Range() *Range {
	return v.rangeMemo.Get()
}

// =============================================================================
// Derived values
// =============================================================================

func (v *Virtualizer) measureDeps() measureDeps {
	return measureDeps{
		count:        v.opts.Count,
		lanes:        v.opts.Lanes,
		gap:          v.opts.Gap,
		paddingStart: v.opts.PaddingStart,
		scrollMargin: v.opts.ScrollMargin,
		disabled:     v.opts.Disabled,
		fnEpoch:      v.fnEpoch,
		sizesVersion: v.sizes.Version(),
	}
}

func (v *Virtualizer) computeMeasurements(d measureDeps) []Item {
	v.measurementsGen++
	if d.disabled {
		v.measurements = nil
		v.laneCaches = make(map[int]*laneCache)
		if v.sizes.Len() > 0 {
			v.sizes.Clear()
		}
		return nil
	}

	start := time.Now()
	lc, ok := v.laneCaches[d.lanes]
	if !ok {
		lc = newLaneCache()
		v.laneCaches[d.lanes] = lc
	}

	stamp := layoutStamp{
		count:        d.count,
		gap:          d.gap,
		paddingStart: d.paddingStart,
		scrollMargin: d.scrollMargin,
		fnEpoch:      d.fnEpoch,
	}
	reuse := 0
	if lc.stamp == stamp {
		switch {
		case lc.pending >= 0:
			reuse = lc.pending
		case lc.sizesVersion == d.sizesVersion:
			reuse = len(lc.items)
		}
	}
	reuse = min(reuse, len(lc.items))

	items := placeItems(layoutParams{
		count:        d.count,
		lanes:        d.lanes,
		gap:          d.gap,
		paddingStart: d.paddingStart,
		scrollMargin: d.scrollMargin,
		key:          v.opts.GetItemKey,
		estimate:     v.opts.EstimateSize,
		colSpan:      v.opts.GetItemColSpan,
	}, v.sizes, lc.items[:reuse])

	lc.items = items
	lc.pending = -1
	lc.stamp = stamp
	lc.sizesVersion = d.sizesVersion
	v.measurements = items

	observability.Layout().OnLayout(context.Background(), d.count, d.lanes, reuse, time.Since(start))
	return items
}

// GetMeasurements returns the placed geometry of every item.
func (v *Virtualizer) GetMeasurements() []Item {
	return v.measurementsMemo.Get()
}

func (v *Virtualizer) rangeDeps() rangeDeps {
	v.GetMeasurements()
	return rangeDeps{
		measurementsGen: v.measurementsGen,
		outerSize:       v.Size(),
		offset:          v.ScrollOffset(),
		lanes:           v.opts.Lanes,
	}
}

func (v *Virtualizer) computeRange(d rangeDeps) *Range {
	items := v.measurements
	if len(items) == 0 || d.outerSize <= 0 {
		v.rng = nil
		return nil
	}
	start, end := calculateRange(items, d.lanes, d.offset, d.outerSize)
	if prev := v.rng; prev == nil || prev.StartIndex != start || prev.EndIndex != end {
		observability.Layout().OnRangeChange(context.Background(), start, end)
	}
	v.rng = &Range{
		StartIndex: start,
		EndIndex:   end,
		Overscan:   v.opts.Overscan,
		Count:      len(items),
	}
	return v.rng
}

func (v *Virtualizer) indexDeps() indexDeps {
	d := indexDeps{
		fnEpoch:  v.fnEpoch,
		overscan: v.opts.Overscan,
		count:    v.opts.Count,
	}
	if r := v.rangeMemo.Get(); r != nil {
		d.hasRange = true
		d.start = r.StartIndex
		d.end = r.EndIndex
	}
	// The caller is about to render this range, so a later maybeNotify
	// for the same state would be redundant.
	v.notifyMemo.UpdateDeps(notifyDeps{
		isScrolling: v.isScrolling,
		hasRange:    d.hasRange,
		start:       d.start,
		end:         d.end,
	})
	return d
}

func (v *Virtualizer) computeIndexes(d indexDeps) []int {
	v.indexesGen++
	if !d.hasRange {
		return nil
	}
	return v.opts.RangeExtractor(Range{
		StartIndex: d.start,
		EndIndex:   d.end,
		Overscan:   d.overscan,
		Count:      d.count,
	})
}

// GetVirtualIndexes returns the indexes to render, overscan included.
func (v *Virtualizer) GetVirtualIndexes() []int {
	return v.indexesMemo.Get()
}

func (v *Virtualizer) itemsDeps() itemsDeps {
	v.GetVirtualIndexes()
	v.GetMeasurements()
	return itemsDeps{indexesGen: v.indexesGen, measurementsGen: v.measurementsGen}
}

func (v *Virtualizer) computeItems(itemsDeps) []Item {
	indexes := v.indexesMemo.Get()
	items := make([]Item, 0, len(indexes))
	for _, i := range indexes {
		if i < 0 || i >= len(v.measurements) {
			continue
		}
		items = append(items, v.measurements[i])
	}
	return items
}

// GetVirtualItems returns the items to render and the lane count they were
// placed with.
func (v *Virtualizer) GetVirtualItems() VirtualItems {
	return VirtualItems{Items: v.itemsMemo.Get(), Lanes: v.opts.Lanes}
}

func (v *Virtualizer) totalDeps() totalDeps {
	v.GetMeasurements()
	return totalDeps{
		measurementsGen: v.measurementsGen,
		lanes:           v.opts.Lanes,
		paddingStart:    v.opts.PaddingStart,
		paddingEnd:      v.opts.PaddingEnd,
		scrollMargin:    v.opts.ScrollMargin,
	}
}

func (v *Virtualizer) computeTotal(d totalDeps) float64 {
	if len(v.measurements) == 0 {
		return d.paddingStart + d.paddingEnd
	}
	end := contentEnd(v.measurements, d.lanes)
	return max(end-d.scrollMargin+d.paddingEnd, 0)
}

// GetTotalSize returns the content size along the scroll axis.
func (v *Virtualizer) GetTotalSize() float64 {
	return v.totalMemo.Get()
}

// GetVirtualItemForOffset returns the item nearest to offset.
func (v *Virtualizer) GetVirtualItemForOffset(offset float64) (Item, bool) {
	items := v.GetMeasurements()
	if len(items) == 0 {
		return Item{}, false
	}
	i := findNearest(0, len(items)-1, func(i int) float64 { return items[i].Start }, offset)
	return items[i], true
}

// =============================================================================
// Measurement
// =============================================================================

// IndexFromElement reads the index attribute of n. It returns -1 and logs a
// warning when the attribute is missing or malformed.
func (v *Virtualizer) IndexFromElement(n Node) int {
	attr := v.opts.IndexAttribute
	raw, ok := n.Attribute(attr)
	if !ok || raw == "" {
		v.logger.Warn("missing index attribute on measured element", "attribute", attr)
		return -1
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		v.logger.Warn("invalid index attribute on measured element", "attribute", attr, "value", raw)
		return -1
	}
	return index
}

// MeasureElement measures a rendered item and keeps observing it. Passing
// nil drops cached nodes that are no longer connected.
func (v *Virtualizer) MeasureElement(n Node) {
	if n == nil {
		for key, cached := range v.elements {
			if !cached.Connected() {
				v.itemObserver().Unobserve(cached)
				delete(v.elements, key)
			}
		}
		return
	}
	v.measureNode(n, nil)
}

func (v *Virtualizer) measureNode(n Node, entry *ResizeEntry) {
	index := v.IndexFromElement(n)
	if index < 0 || index >= len(v.measurements) {
		return
	}
	item := v.measurements[index]

	if prev, ok := v.elements[item.Key]; !ok || prev != n {
		obs := v.itemObserver()
		if ok {
			obs.Unobserve(prev)
		}
		obs.Observe(n)
		v.elements[item.Key] = n
	}

	if n.Connected() {
		v.ResizeItem(index, v.opts.MeasureElement(n, entry, v))
	}
}

// ResizeItem records the exact size of item index. Items that start before
// the viewport shift the scroll position by the size delta so the visible
// content does not jump. Recording an unchanged size is a no-op.
func (v *Virtualizer) ResizeItem(index int, size float64) {
	if index < 0 || index >= len(v.measurements) {
		return
	}
	item := v.measurements[index]

	prev, ok := v.sizes.Get(item.Key)
	if !ok {
		prev = item.Size
	}
	delta := size - prev
	if delta == 0 {
		return
	}

	var adjust bool
	if fn := v.opts.ShouldAdjustScrollPositionOnItemSizeChange; fn != nil {
		adjust = fn(item, delta, v)
	} else {
		adjust = item.Start < v.ScrollOffset()+v.scrollAdjustments
	}
	if adjust {
		v.scrollAdjustments += delta
		v.scrollToOffset(v.ScrollOffset(), ScrollOptions{Adjustments: v.scrollAdjustments})
	}

	for _, lc := range v.laneCaches {
		lc.markPending(item.Index)
	}
	v.sizes.Set(item.Key, size)
	v.scheduleNotify()
}

// Measure drops every exact measurement; items fall back to their estimates
// until measured again.
func (v *Virtualizer) Measure() {
	v.sizes.Clear()
	v.laneCaches = make(map[int]*laneCache)
	v.notify(false)
}

// RestoreSizes replaces the exact measurements with entries, typically a
// snapshot persisted by an earlier session.
func (v *Virtualizer) RestoreSizes(entries []SizeEntry) {
	v.sizes.Restore(entries)
	v.laneCaches = make(map[int]*laneCache)
	v.notify(false)
}

// isDynamic reports whether any item has been measured from a node.
func (v *Virtualizer) isDynamic() bool {
	return len(v.elements) > 0
}
