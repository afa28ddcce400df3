package virtual

import (
	"context"

	"github.com/matzehuels/masonry/pkg/observability"
)

// Align selects which part of the viewport a scroll target lines up with.
type Align string

const (
	AlignStart  Align = "start"
	AlignCenter Align = "center"
	AlignEnd    Align = "end"
	AlignAuto   Align = "auto"
)

// ScrollToOptions configures ScrollToOffset, ScrollToIndex and ScrollBy.
type ScrollToOptions struct {
	Align    Align
	Behavior Behavior
}

// GetOffsetForAlignment adjusts toOffset for align and clamps the result to
// the scrollable extent.
func (v *Virtualizer) GetOffsetForAlignment(toOffset float64, align Align, itemSize float64) float64 {
	size := v.Size()
	scrollOffset := v.ScrollOffset()

	if align == AlignAuto {
		if toOffset >= scrollOffset+size {
			align = AlignEnd
		} else {
			align = AlignStart
		}
	}

	switch align {
	case AlignCenter:
		toOffset += (itemSize - size) / 2
	case AlignEnd:
		toOffset -= size
	}

	maxOffset := v.GetTotalSize() + v.opts.ScrollMargin - size
	return max(min(maxOffset, toOffset), 0)
}

// GetOffsetForIndex resolves the scroll offset that brings item index into
// view. With AlignAuto an item that is already fully visible resolves to
// the current offset. ok is false when the item has no measurement.
func (v *Virtualizer) GetOffsetForIndex(index int, align Align) (offset float64, resolved Align, ok bool) {
	if align == "" {
		align = AlignAuto
	}
	items := v.GetMeasurements()
	index = max(0, min(index, v.opts.Count-1))
	if index >= len(items) {
		return 0, align, false
	}
	item := items[index]

	size := v.Size()
	scrollOffset := v.ScrollOffset()

	if align == AlignAuto {
		switch {
		case item.End >= scrollOffset+size-v.opts.ScrollPaddingEnd:
			align = AlignEnd
		case item.Start <= scrollOffset+v.opts.ScrollPaddingStart:
			align = AlignStart
		default:
			return scrollOffset, align, true
		}
	}

	toOffset := item.Start - v.opts.ScrollPaddingStart
	if align == AlignEnd {
		toOffset = item.End + v.opts.ScrollPaddingEnd
	}
	return v.GetOffsetForAlignment(toOffset, align, item.Size), align, true
}

// ScrollToOffset scrolls to toOffset, aligned with opts.Align (default
// start).
func (v *Virtualizer) ScrollToOffset(toOffset float64, opts ScrollToOptions) {
	if opts.Align == "" {
		opts.Align = AlignStart
	}
	v.warnSmooth(opts.Behavior)
	v.scrollToOffset(v.GetOffsetForAlignment(toOffset, opts.Align, 0), ScrollOptions{Behavior: opts.Behavior})
}

// ScrollBy scrolls by delta from the current offset.
func (v *Virtualizer) ScrollBy(delta float64, behavior Behavior) {
	v.warnSmooth(behavior)
	v.scrollToOffset(v.ScrollOffset()+delta, ScrollOptions{Behavior: behavior})
}

// ScrollToIndex scrolls item index into view. Sizes may still change after
// the scroll lands, so the target is re-resolved on following frames and
// the scroll retried until it converges or the attempts run out. There is
// no cancellation; a newer call does not stop an older loop.
func (v *Virtualizer) ScrollToIndex(index int, opts ScrollToOptions) {
	if opts.Align == "" {
		opts.Align = AlignAuto
	}
	v.warnSmooth(opts.Behavior)
	index = max(0, min(index, v.opts.Count-1))

	attempts := 0
	var try, retry func(align Align)

	try = func(align Align) {
		if v.scrollElement == nil {
			return
		}
		offset, resolved, ok := v.GetOffsetForIndex(index, align)
		if !ok {
			v.logger.Warn("failed to get offset for index", "index", index)
			return
		}
		v.scrollToOffset(offset, ScrollOptions{Behavior: opts.Behavior})

		v.opts.Scheduler.RequestFrame(func() {
			current := v.ScrollOffset()
			target, _, ok := v.GetOffsetForIndex(index, resolved)
			if !ok {
				v.logger.Warn("failed to get offset for index", "index", index)
				return
			}
			if !ApproxEqual(target, current) {
				retry(resolved)
			}
		})
	}

	retry = func(align Align) {
		if v.scrollElement == nil {
			return
		}
		attempts++
		if attempts >= maxScrollAttempts {
			v.logger.Warn("failed to scroll to index", "index", index, "attempts", maxScrollAttempts)
			return
		}
		observability.Layout().OnScrollRetry(context.Background(), index, attempts)
		if v.opts.Debug {
			v.logger.Debug("scheduling scroll retry", "index", index, "attempt", attempts, "max", maxScrollAttempts)
		}
		v.opts.Scheduler.RequestFrame(func() { try(align) })
	}

	try(opts.Align)
}

func (v *Virtualizer) warnSmooth(b Behavior) {
	if b == BehaviorSmooth && v.isDynamic() {
		v.logger.Warn("smooth scroll behavior is not fully supported with dynamic sizes")
	}
}

func (v *Virtualizer) scrollToOffset(offset float64, opts ScrollOptions) {
	v.opts.ScrollToFn(offset, opts, v)
}
