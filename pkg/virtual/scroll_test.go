package virtual_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/headless"
	"github.com/matzehuels/masonry/pkg/virtual"
)

// listFixture is a single-lane list of 20 items estimated at 50 in a
// viewport of 100.
func listFixture(t *testing.T, mutate func(*virtual.Options)) *fixture {
	return newFixture(t, 300, 100, func(o *virtual.Options) {
		o.Count = 20
		o.Lanes = 1
		o.Gap = 0
		o.EstimateSize = func(int, int) float64 { return 50 }
		if mutate != nil {
			mutate(o)
		}
	})
}

func TestGetOffsetForIndex(t *testing.T) {
	tests := []struct {
		name         string
		index        int
		align        virtual.Align
		want         float64
		wantResolved virtual.Align
	}{
		{"start", 10, virtual.AlignStart, 500, virtual.AlignStart},
		{"center", 10, virtual.AlignCenter, 475, virtual.AlignCenter},
		{"end", 10, virtual.AlignEnd, 450, virtual.AlignEnd},
		{"auto below", 10, virtual.AlignAuto, 450, virtual.AlignEnd},
		{"auto visible", 0, virtual.AlignAuto, 0, virtual.AlignStart},
		{"clamped", 19, virtual.AlignStart, 900, virtual.AlignStart},
		{"index clamped", 99, virtual.AlignStart, 900, virtual.AlignStart},
	}
	f := listFixture(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, resolved, ok := f.v.GetOffsetForIndex(tt.index, tt.align)
			if !ok || got != tt.want || resolved != tt.wantResolved {
				t.Errorf("GetOffsetForIndex(%d, %s) = (%v, %s, %v), want (%v, %s)",
					tt.index, tt.align, got, resolved, ok, tt.want, tt.wantResolved)
			}
		})
	}
}

func TestGetOffsetForIndexAutoFullyVisible(t *testing.T) {
	f := listFixture(t, nil)
	f.el.Drag(virtual.AxisVertical, 230)

	got, resolved, ok := f.v.GetOffsetForIndex(5, virtual.AlignAuto)
	if !ok || got != 230 || resolved != virtual.AlignAuto {
		t.Errorf("GetOffsetForIndex(5, auto) = (%v, %s, %v), want current offset", got, resolved, ok)
	}
}

func TestGetOffsetForIndexScrollPadding(t *testing.T) {
	f := listFixture(t, func(o *virtual.Options) {
		o.ScrollPaddingStart = 20
		o.ScrollPaddingEnd = 10
	})
	if got, _, _ := f.v.GetOffsetForIndex(10, virtual.AlignStart); got != 480 {
		t.Errorf("start with padding = %v, want 480", got)
	}
	if got, _, _ := f.v.GetOffsetForIndex(10, virtual.AlignEnd); got != 460 {
		t.Errorf("end with padding = %v, want 460", got)
	}
}

func TestGetOffsetForIndexWithoutItems(t *testing.T) {
	f := listFixture(t, func(o *virtual.Options) { o.Count = 0 })
	if _, _, ok := f.v.GetOffsetForIndex(3, virtual.AlignStart); ok {
		t.Error("expected no offset for an empty list")
	}

	f.v.ScrollToIndex(3, virtual.ScrollToOptions{})
	if !strings.Contains(f.logs.String(), "failed to get offset for index") {
		t.Errorf("expected warning, got %q", f.logs.String())
	}
}

func TestScrollToOffsetAndBy(t *testing.T) {
	f := listFixture(t, nil)

	f.v.ScrollToOffset(300, virtual.ScrollToOptions{})
	if f.v.ScrollOffset() != 300 {
		t.Fatalf("ScrollOffset() = %v, want 300", f.v.ScrollOffset())
	}
	f.v.ScrollToOffset(300, virtual.ScrollToOptions{Align: virtual.AlignEnd})
	if f.v.ScrollOffset() != 200 {
		t.Errorf("ScrollOffset() = %v, want 200", f.v.ScrollOffset())
	}
	f.v.ScrollBy(35, virtual.BehaviorInstant)
	if f.v.ScrollOffset() != 235 {
		t.Errorf("ScrollOffset() = %v, want 235", f.v.ScrollOffset())
	}
	f.v.ScrollToOffset(5000, virtual.ScrollToOptions{})
	if f.v.ScrollOffset() != 900 {
		t.Errorf("ScrollOffset() = %v, want clamped 900", f.v.ScrollOffset())
	}

	calls := f.el.Calls()
	if calls[len(calls)-2].Behavior != virtual.BehaviorInstant {
		t.Errorf("behavior not forwarded: %+v", calls[len(calls)-2])
	}
}

func TestSmoothScrollWarnsWhenDynamic(t *testing.T) {
	f := listFixture(t, nil)
	f.v.ScrollToOffset(100, virtual.ScrollToOptions{Behavior: virtual.BehaviorSmooth})
	if strings.Contains(f.logs.String(), "smooth") {
		t.Fatal("static list should not warn")
	}

	f.v.MeasureElement(headless.NewNode(0, virtual.Rect{Height: 60}))
	f.v.ScrollToOffset(100, virtual.ScrollToOptions{Behavior: virtual.BehaviorSmooth})
	if !strings.Contains(f.logs.String(), "smooth scroll behavior") {
		t.Errorf("expected warning, got %q", f.logs.String())
	}
}

func TestScrollToIndexConverges(t *testing.T) {
	// Items render at twice their estimate. Rendering the window around the
	// first landing grows the items above the target, so the target moves
	// and the retry loop has to chase it.
	f := newFixture(t, 300, 200, func(o *virtual.Options) {
		o.Count = 20
		o.Lanes = 1
		o.Gap = 0
		o.Overscan = 2
		o.EstimateSize = func(int, int) float64 { return 50 }
		o.ShouldAdjustScrollPositionOnItemSizeChange = func(virtual.Item, float64, *virtual.Virtualizer) bool {
			return false
		}
	})
	surface := headless.NewSurface(f.v, func(int) virtual.Rect { return virtual.Rect{Width: 300, Height: 100} })

	f.v.ScrollToIndex(4, virtual.ScrollToOptions{Align: virtual.AlignStart})
	if f.v.ScrollOffset() != 200 {
		t.Fatalf("first landing = %v, want the estimated 200", f.v.ScrollOffset())
	}

	for frame := 0; frame < 20 && f.loop.Pending() > 0; frame++ {
		surface.Render()
		f.loop.Frame()
	}

	if f.loop.Pending() != 0 {
		t.Fatal("retry loop did not stop")
	}
	target, _, _ := f.v.GetOffsetForIndex(4, virtual.AlignStart)
	if target != 350 || !virtual.ApproxEqual(f.v.ScrollOffset(), target) {
		t.Errorf("offset = %v, target = %v, want both 350", f.v.ScrollOffset(), target)
	}
	if strings.Contains(f.logs.String(), "failed to scroll") {
		t.Error("converging scroll should not warn")
	}
}

func TestScrollToIndexGivesUp(t *testing.T) {
	scrolls := 0
	f := listFixture(t, func(o *virtual.Options) {
		// The container never moves.
		o.ScrollToFn = func(float64, virtual.ScrollOptions, *virtual.Virtualizer) { scrolls++ }
	})
	scrolls = 0

	f.v.ScrollToIndex(10, virtual.ScrollToOptions{Align: virtual.AlignStart})
	f.loop.Settle(100)

	if f.loop.Pending() != 0 {
		t.Fatal("retry loop should stop after exhausting its attempts")
	}
	if scrolls != 10 {
		t.Errorf("scrolls = %d, want 10", scrolls)
	}
	if !strings.Contains(f.logs.String(), "failed to scroll to index") {
		t.Errorf("expected exhaustion warning, got %q", f.logs.String())
	}
	if f.v.ScrollOffset() != 0 {
		t.Errorf("offset = %v, want untouched", f.v.ScrollOffset())
	}
}

func TestScrollToIndexUnmounted(t *testing.T) {
	var buf bytes.Buffer
	scrolls := 0
	opts := virtual.DefaultOptions()
	opts.Count = 10
	opts.EstimateSize = func(int, int) float64 { return 50 }
	opts.GetScrollElement = func() virtual.Container { return nil }
	opts.ScrollToFn = func(float64, virtual.ScrollOptions, *virtual.Virtualizer) { scrolls++ }
	opts.Logger = log.New(&buf)
	v := virtual.New(opts)
	v.Update()

	v.ScrollToIndex(5, virtual.ScrollToOptions{})
	if scrolls != 0 {
		t.Errorf("scrolled %d times without a container", scrolls)
	}
}
