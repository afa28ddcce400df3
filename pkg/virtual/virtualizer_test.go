package virtual_test

import (
	"bytes"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/headless"
	"github.com/matzehuels/masonry/pkg/virtual"
)

type fixture struct {
	el       *headless.Element
	loop     *virtual.Loop
	v        *virtual.Virtualizer
	logs     *bytes.Buffer
	notifies int
	cleanup  func()
}

// newFixture mounts a virtualizer over a headless element. Item sizes
// default to the uniform grid used throughout: six items of 100 in three
// lanes with a gap of 10.
func newFixture(t *testing.T, width, height float64, mutate func(*virtual.Options)) *fixture {
	t.Helper()
	f := &fixture{
		el:   headless.NewElement(width, height),
		loop: virtual.NewLoop(),
		logs: &bytes.Buffer{},
	}
	opts := virtual.DefaultOptions()
	opts.Count = 6
	opts.Lanes = 3
	opts.Gap = 10
	opts.EstimateSize = func(int, int) float64 { return 100 }
	opts.GetScrollElement = func() virtual.Container { return f.el }
	opts.Scheduler = f.loop
	opts.Logger = log.New(f.logs)
	opts.OnChange = func(*virtual.Virtualizer, bool) { f.notifies++ }
	if mutate != nil {
		mutate(&opts)
	}
	f.v = virtual.New(opts)
	f.cleanup = f.v.Mount()
	f.v.Update()
	t.Cleanup(f.cleanup)
	return f
}

func TestGridLayout(t *testing.T) {
	f := newFixture(t, 300, 500, nil)

	items := f.v.GetMeasurements()
	if len(items) != 6 {
		t.Fatalf("len = %d, want 6", len(items))
	}
	for i, it := range items {
		wantStart := 0.0
		if i >= 3 {
			wantStart = 110
		}
		if it.Lane != i%3 || it.Start != wantStart || it.End != wantStart+100 {
			t.Errorf("item %d = %+v", i, it)
		}
	}
	if got := f.v.GetTotalSize(); got != 210 {
		t.Errorf("GetTotalSize() = %v, want 210", got)
	}
}

func TestVisibleRangeWithOverscan(t *testing.T) {
	f := newFixture(t, 300, 100, nil)
	f.el.Drag(virtual.AxisVertical, 150)

	r := f.v.Range()
	if r == nil || r.StartIndex != 3 || r.EndIndex != 5 {
		t.Fatalf("Range() = %+v, want [3, 5]", r)
	}
	if got := f.v.GetVirtualIndexes(); !slices.Equal(got, []int{2, 3, 4, 5}) {
		t.Errorf("GetVirtualIndexes() = %v, want [2 3 4 5]", got)
	}
	vi := f.v.GetVirtualItems()
	if vi.Lanes != 3 || len(vi.Items) != 4 || vi.Items[0].Index != 2 {
		t.Errorf("GetVirtualItems() = %+v", vi)
	}
}

func TestColSpanClamped(t *testing.T) {
	f := newFixture(t, 300, 500, func(o *virtual.Options) {
		o.GetItemColSpan = func(index, lanes int) int {
			if index == 1 {
				return 10
			}
			return 1
		}
	})
	items := f.v.GetMeasurements()
	if items[1].ColSpan != 3 || items[1].Lane != 0 || items[1].Start != 110 {
		t.Errorf("item 1 = %+v, want full width below item 0", items[1])
	}
}

func TestEmptyList(t *testing.T) {
	f := newFixture(t, 300, 500, func(o *virtual.Options) {
		o.Count = 0
		o.PaddingStart = 12
		o.PaddingEnd = 8
	})
	if len(f.v.GetMeasurements()) != 0 {
		t.Error("expected no measurements")
	}
	if got := f.v.GetTotalSize(); got != 20 {
		t.Errorf("GetTotalSize() = %v, want 20", got)
	}
	if got := f.v.GetVirtualItems().Items; len(got) != 0 {
		t.Errorf("GetVirtualItems() = %v", got)
	}
}

func TestTotalSizeWithPaddingAndMargin(t *testing.T) {
	f := newFixture(t, 300, 500, func(o *virtual.Options) {
		o.PaddingStart = 20
		o.PaddingEnd = 30
		o.ScrollMargin = 40
	})
	items := f.v.GetMeasurements()
	if items[0].Start != 60 {
		t.Errorf("first start = %v, want 60", items[0].Start)
	}
	// Last end is 60+210; the margin is not part of the content.
	if got := f.v.GetTotalSize(); got != 260 {
		t.Errorf("GetTotalSize() = %v, want 260", got)
	}
}

func TestTotalSizeMonotonicInCount(t *testing.T) {
	prev := 0.0
	for n := 0; n < 40; n++ {
		f := newFixture(t, 300, 500, func(o *virtual.Options) {
			o.Count = n
			o.EstimateSize = func(i, _ int) float64 { return float64(30 + (i*53)%70) }
			o.GetItemColSpan = func(i, _ int) int { return 1 + i%3 }
		})
		total := f.v.GetTotalSize()
		if total < prev {
			t.Fatalf("count %d: total %v < %v", n, total, prev)
		}
		prev = total
	}
}

func TestResizeItemIdempotent(t *testing.T) {
	f := newFixture(t, 300, 100, nil)
	f.el.Drag(virtual.AxisVertical, 150)
	f.notifies = 0
	calls := len(f.el.Calls())

	// Item 0 starts above the viewport, so growing it shifts the scroll
	// position by the delta.
	f.v.GetMeasurements()
	f.v.ResizeItem(0, 130)
	if f.notifies != 1 {
		t.Errorf("notifies = %d after resize, want 1", f.notifies)
	}
	got := f.el.Calls()
	if len(got) != calls+1 || got[len(got)-1].Offset != 180 {
		t.Fatalf("scroll calls = %+v, want a compensation to 180", got[calls:])
	}
	// Lane 0 is now the tallest, so item 5 is the next to land there.
	before := f.v.GetMeasurements()
	if before[5].Lane != 0 || before[5].Start != 140 {
		t.Errorf("item 5 = %+v, want lane 0 start 140", before[5])
	}

	f.v.ResizeItem(0, 130)
	if f.notifies != 1 {
		t.Errorf("notifies = %d after repeated resize, want 1", f.notifies)
	}
	if len(f.el.Calls()) != calls+1 {
		t.Error("repeated resize should not compensate again")
	}
	if after := f.v.GetMeasurements(); !slices.Equal(before, after) {
		t.Error("repeated resize moved items")
	}
}

func TestResizeItemCustomAdjustPredicate(t *testing.T) {
	f := newFixture(t, 300, 100, func(o *virtual.Options) {
		o.ShouldAdjustScrollPositionOnItemSizeChange = func(virtual.Item, float64, *virtual.Virtualizer) bool {
			return false
		}
	})
	f.el.Drag(virtual.AxisVertical, 150)
	calls := len(f.el.Calls())
	f.v.GetMeasurements()
	f.v.ResizeItem(0, 180)
	if len(f.el.Calls()) != calls {
		t.Error("predicate returning false should suppress compensation")
	}
}

func TestResizeNotifyDebounced(t *testing.T) {
	f := newFixture(t, 300, 500, func(o *virtual.Options) {
		o.ResizeNotifyDelay = 16 * time.Millisecond
	})
	f.v.GetMeasurements()
	f.notifies = 0

	f.v.ResizeItem(3, 120)
	f.v.ResizeItem(4, 130)
	f.v.ResizeItem(5, 140)
	if f.notifies != 0 {
		t.Fatalf("notifies = %d before the delay", f.notifies)
	}
	f.loop.Advance(16 * time.Millisecond)
	if f.notifies != 1 {
		t.Errorf("notifies = %d, want 1", f.notifies)
	}
}

func TestMeasureElementConverges(t *testing.T) {
	f := newFixture(t, 300, 500, nil)
	real := func(i int) float64 { return float64(70 + 5*i) }

	for _, it := range f.v.GetVirtualItems().Items {
		f.v.MeasureElement(headless.NewNode(it.Index, virtual.Rect{Width: 100, Height: real(it.Index)}))
	}
	for _, it := range f.v.GetMeasurements() {
		if it.Size != real(it.Index) {
			t.Errorf("item %d size = %v, want %v", it.Index, it.Size, real(it.Index))
		}
	}
	if f.v.Sizes().Len() != 6 {
		t.Errorf("Sizes().Len() = %d, want 6", f.v.Sizes().Len())
	}
}

func TestMeasureElementBorderBox(t *testing.T) {
	var obs headless.Observers
	f := newFixture(t, 300, 500, func(o *virtual.Options) {
		o.NewItemObserver = obs.New
	})
	f.v.GetMeasurements()

	n := headless.NewNode(2, virtual.Rect{Height: 100})
	f.v.MeasureElement(n)
	if obs.Observed() != 1 {
		t.Fatalf("Observed() = %d, want 1", obs.Observed())
	}

	obs.Resize(n, virtual.Rect{Width: 100, Height: 144.6})
	if got := f.v.GetMeasurements()[2].Size; got != 145 {
		t.Errorf("size = %v, want 145", got)
	}

	n.Detach()
	f.v.MeasureElement(nil)
	if obs.Observed() != 0 {
		t.Errorf("Observed() = %d after garbage collection, want 0", obs.Observed())
	}
}

func TestMeasureElementMissingIndex(t *testing.T) {
	f := newFixture(t, 300, 500, nil)
	f.v.GetMeasurements()

	n := headless.NewNode(0, virtual.Rect{Height: 300})
	n.SetAttribute(virtual.DefaultIndexAttribute, "")
	f.v.MeasureElement(n)

	bad := headless.NewNode(0, virtual.Rect{Height: 300})
	bad.SetAttribute(virtual.DefaultIndexAttribute, "first")
	f.v.MeasureElement(bad)

	if f.v.Sizes().Len() != 0 {
		t.Error("invalid nodes should not be measured")
	}
	out := f.logs.String()
	if !strings.Contains(out, "missing index attribute") || !strings.Contains(out, "invalid index attribute") {
		t.Errorf("expected warnings, got %q", out)
	}
}

func TestCustomIndexAttribute(t *testing.T) {
	f := newFixture(t, 300, 500, func(o *virtual.Options) { o.IndexAttribute = "data-row" })
	n := headless.NewNode(0, virtual.Rect{})
	n.SetAttribute("data-row", "4")
	if got := f.v.IndexFromElement(n); got != 4 {
		t.Errorf("IndexFromElement() = %d, want 4", got)
	}
}

func TestMeasureResetsToEstimates(t *testing.T) {
	f := newFixture(t, 300, 500, nil)
	f.v.GetMeasurements()
	f.v.ResizeItem(1, 250)
	if f.v.GetMeasurements()[1].Size != 250 {
		t.Fatal("resize not applied")
	}
	f.v.Measure()
	if got := f.v.GetMeasurements()[1].Size; got != 100 {
		t.Errorf("size after Measure() = %v, want 100", got)
	}
}

func TestSizesSurviveLaneChanges(t *testing.T) {
	f := newFixture(t, 300, 500, nil)
	f.v.GetMeasurements()
	f.v.ResizeItem(0, 40)

	opts := f.v.Options()
	opts.Lanes = 2
	f.v.SetOptions(opts)
	items := f.v.GetMeasurements()
	if items[0].Size != 40 {
		t.Errorf("size with 2 lanes = %v, want 40", items[0].Size)
	}
	// Item 2 goes under the shorter item 0.
	if items[2].Lane != 0 || items[2].Start != 50 {
		t.Errorf("item 2 = %+v", items[2])
	}
	if got := f.v.GetVirtualItems().Lanes; got != 2 {
		t.Errorf("Lanes = %d, want 2", got)
	}
}

func TestInitialSizesAndRestore(t *testing.T) {
	f := newFixture(t, 300, 500, func(o *virtual.Options) {
		o.InitialSizes = []virtual.SizeEntry{{Key: "0", Size: 70}}
	})
	if got := f.v.GetMeasurements()[0].Size; got != 70 {
		t.Errorf("initial size = %v, want 70", got)
	}
	snap := f.v.Sizes().Snapshot()

	f.v.RestoreSizes([]virtual.SizeEntry{{Key: "1", Size: 30}})
	items := f.v.GetMeasurements()
	if items[0].Size != 100 || items[1].Size != 30 {
		t.Errorf("after restore: %v, %v", items[0].Size, items[1].Size)
	}
	if len(snap) != 1 || snap[0].Key != "0" {
		t.Errorf("snapshot = %v", snap)
	}
}

func TestMountIsIdempotent(t *testing.T) {
	f := newFixture(t, 300, 500, nil)
	if !f.v.Mounted() {
		t.Fatal("expected mounted")
	}
	// One scroll listener plus the resize observation.
	if got := f.el.Listeners(); got != 2 {
		t.Fatalf("Listeners() = %d, want 2", got)
	}
	f.v.Update()
	f.v.Update()
	if got := f.el.Listeners(); got != 2 {
		t.Errorf("Listeners() = %d after repeated Update, want 2", got)
	}
}

func TestMountSwapsElement(t *testing.T) {
	first := headless.NewElement(300, 500)
	second := headless.NewElement(300, 500)
	current := first

	opts := virtual.DefaultOptions()
	opts.Count = 6
	opts.EstimateSize = func(int, int) float64 { return 100 }
	opts.GetScrollElement = func() virtual.Container {
		if current == nil {
			return nil
		}
		return current
	}
	opts.Logger = log.New(&bytes.Buffer{})
	v := virtual.New(opts)
	cleanup := v.Mount()
	v.Update()

	current = second
	v.Update()
	if first.Listeners() != 0 {
		t.Errorf("old element still has %d listeners", first.Listeners())
	}
	if second.Listeners() != 2 {
		t.Errorf("new element has %d listeners, want 2", second.Listeners())
	}

	current = nil
	v.Update()
	if v.Mounted() || second.Listeners() != 0 {
		t.Errorf("nil element should unmount, listeners=%d", second.Listeners())
	}

	current = first
	v.Update()
	cleanup()
	if v.Mounted() || first.Listeners() != 0 {
		t.Error("cleanup should release every subscription")
	}
}

func TestDisabled(t *testing.T) {
	f := newFixture(t, 300, 500, nil)
	f.v.ResizeItem(0, 10)

	opts := f.v.Options()
	opts.Disabled = true
	f.v.SetOptions(opts)
	f.v.Update()

	if f.v.Mounted() || f.el.Listeners() != 0 {
		t.Error("disabled virtualizer should detach")
	}
	if len(f.v.GetMeasurements()) != 0 || f.v.GetTotalSize() != 0 {
		t.Error("disabled virtualizer should have no geometry")
	}
	if f.v.Sizes().Len() != 0 {
		t.Error("disabling should drop measurements")
	}
}

func TestIsScrollingFallbackTimer(t *testing.T) {
	f := newFixture(t, 300, 100, func(o *virtual.Options) { o.Count = 60 })

	f.el.Drag(virtual.AxisVertical, 200)
	if !f.v.IsScrolling() || f.v.ScrollDirection() != virtual.DirectionForward {
		t.Fatalf("scrolling=%v direction=%q", f.v.IsScrolling(), f.v.ScrollDirection())
	}
	f.el.Drag(virtual.AxisVertical, 120)
	if f.v.ScrollDirection() != virtual.DirectionBackward {
		t.Errorf("direction = %q, want backward", f.v.ScrollDirection())
	}

	f.loop.Advance(100 * time.Millisecond)
	if !f.v.IsScrolling() {
		t.Error("settled too early")
	}
	f.loop.Advance(50 * time.Millisecond)
	if f.v.IsScrolling() || f.v.ScrollDirection() != virtual.DirectionNone {
		t.Error("expected settled after the reset delay")
	}
	if f.v.ScrollOffset() != 120 {
		t.Errorf("ScrollOffset() = %v, want 120", f.v.ScrollOffset())
	}
}

func TestIsScrollingScrollEnd(t *testing.T) {
	f := newFixture(t, 300, 100, func(o *virtual.Options) {
		o.Count = 60
		o.UseScrollendEvent = true
	})
	f.el.Drag(virtual.AxisVertical, 200)
	if !f.v.IsScrolling() {
		t.Fatal("expected scrolling")
	}
	f.el.EndDrag()
	if f.v.IsScrolling() {
		t.Error("scroll end should settle immediately")
	}
	if f.loop.Timers() != 0 {
		t.Errorf("Timers() = %d, want no fallback timer", f.loop.Timers())
	}
}

func TestStaticElementMeasuredOnce(t *testing.T) {
	el := headless.NewElement(300, 200)
	opts := virtual.DefaultOptions()
	opts.Count = 10
	opts.EstimateSize = func(int, int) float64 { return 50 }
	opts.GetScrollElement = func() virtual.Container { return headless.Static(el) }
	opts.Logger = log.New(&bytes.Buffer{})
	v := virtual.New(opts)
	defer v.Mount()()
	v.Update()

	if v.Size() != 200 {
		t.Fatalf("Size() = %v, want 200", v.Size())
	}
	el.Resize(300, 400)
	if v.Size() != 200 {
		t.Errorf("Size() = %v, static elements are not re-observed", v.Size())
	}
}

func TestElementResizeObserved(t *testing.T) {
	f := newFixture(t, 300, 100, func(o *virtual.Options) { o.Count = 30 })
	f.el.Resize(300, 350.4)
	if got := f.v.Size(); got != 350 {
		t.Errorf("Size() = %v, want 350", got)
	}
	if r := f.v.ScrollRect(); r.Width != 300 {
		t.Errorf("ScrollRect() = %+v", r)
	}
}

func TestWindowObservation(t *testing.T) {
	w := headless.NewWindow(1024, 300)
	opts := virtual.WindowOptions()
	opts.Count = 100
	opts.EstimateSize = func(int, int) float64 { return 50 }
	opts.GetScrollElement = func() virtual.Container { return w }
	opts.Logger = log.New(&bytes.Buffer{})
	v := virtual.New(opts)
	defer v.Mount()()
	v.Update()

	if v.Size() != 300 {
		t.Errorf("Size() = %v, want 300", v.Size())
	}
	w.Drag(virtual.AxisVertical, 500)
	if v.ScrollOffset() != 500 {
		t.Errorf("ScrollOffset() = %v, want 500", v.ScrollOffset())
	}
	r := v.Range()
	if r == nil || r.StartIndex != 10 || r.EndIndex != 15 {
		t.Errorf("Range() = %+v, want [10, 15]", r)
	}

	v.ScrollToIndex(40, virtual.ScrollToOptions{Align: virtual.AlignStart})
	if _, y := w.ScrollXY(); y != 2000 {
		t.Errorf("window y = %v, want 2000", y)
	}
}

func TestHorizontal(t *testing.T) {
	f := newFixture(t, 250, 80, func(o *virtual.Options) {
		o.Count = 20
		o.Lanes = 1
		o.Gap = 0
		o.Horizontal = true
		o.EstimateSize = func(int, int) float64 { return 100 }
	})
	if f.v.Size() != 250 {
		t.Fatalf("Size() = %v, want width 250", f.v.Size())
	}
	f.v.ScrollToOffset(300, virtual.ScrollToOptions{})
	calls := f.el.Calls()
	last := calls[len(calls)-1]
	if last.Axis != virtual.AxisHorizontal || last.Offset != 300 {
		t.Errorf("last scroll = %+v", last)
	}
	if left, _ := f.el.ScrollPosition(); left != 300 || f.v.ScrollOffset() != 300 {
		t.Errorf("left = %v offset = %v", left, f.v.ScrollOffset())
	}

	n := headless.NewNode(0, virtual.Rect{Width: 120, Height: 80})
	f.v.MeasureElement(n)
	if got := f.v.GetMeasurements()[0].Size; got != 120 {
		t.Errorf("horizontal size = %v, want width 120", got)
	}
}

func TestGetVirtualItemForOffset(t *testing.T) {
	f := newFixture(t, 300, 100, func(o *virtual.Options) {
		o.Count = 10
		o.Lanes = 1
		o.Gap = 0
		o.EstimateSize = func(int, int) float64 { return 50 }
	})
	it, ok := f.v.GetVirtualItemForOffset(120)
	if !ok || it.Index != 2 {
		t.Errorf("GetVirtualItemForOffset(120) = %+v, %v", it, ok)
	}
}

func TestMissingRequiredOptions(t *testing.T) {
	var buf bytes.Buffer
	v := virtual.New(virtual.Options{Count: 3, Logger: log.New(&buf)})
	v.Update()

	if v.Mounted() {
		t.Error("no scroll element getter: nothing to mount")
	}
	if got := v.GetMeasurements(); len(got) != 3 || got[2].Start != 100 {
		t.Errorf("measurements = %+v, want the fallback estimate", got)
	}
	out := buf.String()
	if !strings.Contains(out, "scroll element getter") || !strings.Contains(out, "size estimator") {
		t.Errorf("expected warnings, got %q", out)
	}
}

func TestDebugTraces(t *testing.T) {
	f := newFixture(t, 300, 500, func(o *virtual.Options) { o.Debug = true })
	f.v.Options().Logger.SetLevel(log.DebugLevel)
	f.v.GetVirtualItems()
	if !strings.Contains(f.logs.String(), "getVirtualItems") {
		t.Errorf("expected memo traces, got %q", f.logs.String())
	}
}
