package virtual

import "math"

// Item is the placed geometry of one item along the scroll axis.
type Item struct {
	Key     string  `json:"key"`
	Index   int     `json:"index"`
	Lane    int     `json:"lane"`
	ColSpan int     `json:"colSpan"`
	Start   float64 `json:"start"`
	Size    float64 `json:"size"`
	End     float64 `json:"end"`
}

// Lanes returns the half-open lane window [Lane, Lane+ColSpan).
func (it Item) Lanes() (first, last int) {
	return it.Lane, it.Lane + it.ColSpan
}

// layoutParams are the inputs of one layout pass.
type layoutParams struct {
	count        int
	lanes        int
	gap          float64
	paddingStart float64
	scrollMargin float64
	key          func(index int) string
	estimate     func(index, lanes int) float64
	colSpan      func(index, lanes int) int
}

// laneCache holds the measurements computed for one lane count. pending is
// the lowest index whose size changed since items was computed, or -1.
type laneCache struct {
	items        []Item
	pending      int
	stamp        layoutStamp
	sizesVersion uint64
}

// layoutStamp identifies the non-size inputs items was computed from. A
// prefix is only reusable when the stamp is unchanged.
type layoutStamp struct {
	count        int
	gap          float64
	paddingStart float64
	scrollMargin float64
	fnEpoch      uint64
}

func newLaneCache() *laneCache {
	return &laneCache{pending: -1}
}

// markPending lowers the re-measurement watermark to index.
func (c *laneCache) markPending(index int) {
	if c.pending < 0 || index < c.pending {
		c.pending = index
	}
}

// clampSpan limits a requested span to [1, lanes].
func clampSpan(span, lanes int) int {
	if span < 1 {
		return 1
	}
	return min(span, lanes)
}

// placeItems lays out p.count items. The first len(prefix) items are taken
// as-is; the lane ends they leave behind are replayed from them before the
// scan resumes.
func placeItems(p layoutParams, sizes *SizeCache, prefix []Item) []Item {
	lanes := max(p.lanes, 1)
	if len(prefix) > p.count {
		prefix = prefix[:p.count]
	}

	ends := make([]float64, lanes)
	for l := range ends {
		ends[l] = p.paddingStart + p.scrollMargin
	}

	items := make([]Item, p.count)
	copy(items, prefix)
	for _, it := range prefix {
		first, last := it.Lanes()
		for l := first; l < last; l++ {
			ends[l] = it.End + p.gap
		}
	}

	for i := len(prefix); i < p.count; i++ {
		span := clampSpan(p.colSpan(i, lanes), lanes)
		lane, start := pickLane(ends, span)

		key := p.key(i)
		size, ok := sizes.Get(key)
		if !ok {
			size = p.estimate(i, lanes)
		}

		end := start + size
		items[i] = Item{
			Key:     key,
			Index:   i,
			Lane:    lane,
			ColSpan: span,
			Start:   start,
			Size:    size,
			End:     end,
		}
		for l := lane; l < lane+span; l++ {
			ends[l] = end + p.gap
		}
	}
	return items
}

// pickLane chooses the lane window of width span whose tallest lane is
// lowest. Ties go to the lowest starting lane.
func pickLane(ends []float64, span int) (lane int, start float64) {
	if span == 1 {
		lane, start = 0, ends[0]
		for l := 1; l < len(ends); l++ {
			if ends[l] < start {
				lane, start = l, ends[l]
			}
		}
		return lane, start
	}

	start = math.Inf(1)
	for s := 0; s+span <= len(ends); s++ {
		candidate := ends[s]
		for l := s + 1; l < s+span; l++ {
			candidate = max(candidate, ends[l])
		}
		if candidate < start {
			lane, start = s, candidate
		}
	}
	return lane, start
}

// contentEnd returns the furthest end position across all lanes. The last
// item touching a lane may be a spanning item several indexes back, so the
// scan walks backward until every lane has been seen.
func contentEnd(items []Item, lanes int) float64 {
	if len(items) == 0 {
		return 0
	}
	if lanes <= 1 {
		return items[len(items)-1].End
	}

	seen := make([]bool, lanes)
	remaining := lanes
	end := math.Inf(-1)
	for i := len(items) - 1; i >= 0 && remaining > 0; i-- {
		it := items[i]
		first, last := it.Lanes()
		for l := first; l < last && l < lanes; l++ {
			if seen[l] {
				continue
			}
			seen[l] = true
			remaining--
			end = max(end, it.End)
		}
	}
	return end
}
