package virtual

import (
	"math"
	"strconv"
)

// DefaultKey returns the index itself, formatted as a string.
func DefaultKey(index int) string {
	return strconv.Itoa(index)
}

// DefaultColSpan makes every item occupy a single lane.
func DefaultColSpan(index, lanes int) int {
	return 1
}

// Range is the window of relevant indexes before overscan is applied.
type Range struct {
	StartIndex int
	EndIndex   int
	Overscan   int
	Count      int
}

// DefaultRangeExtractor expands r by its overscan in both directions,
// clamped to [0, Count-1].
func DefaultRangeExtractor(r Range) []int {
	start := max(r.StartIndex-r.Overscan, 0)
	end := min(r.EndIndex+r.Overscan, r.Count-1)

	if end < start {
		return nil
	}
	indexes := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		indexes = append(indexes, i)
	}
	return indexes
}

// ApproxEqual reports whether two scroll offsets are equal within
// sub-pixel rendering error.
func ApproxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1.01
}

// findNearest returns the index whose value equals target, or the nearest
// index below it. getValue is expected to be roughly non-decreasing.
func findNearest(low, high int, getValue func(int) float64, target float64) int {
	for low <= high {
		mid := (low + high) / 2
		v := getValue(mid)
		switch {
		case v < target:
			low = mid + 1
		case v > target:
			high = mid - 1
		default:
			return mid
		}
	}
	if low > 0 {
		return low - 1
	}
	return 0
}
