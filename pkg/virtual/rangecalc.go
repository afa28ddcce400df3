package virtual

// calculateRange returns the index window whose items intersect
// [offset, offset+outerSize). Items are only ordered by start within a lane,
// so the binary search result is a seed that is then extended per lane.
func calculateRange(items []Item, lanes int, offset, outerSize float64) (startIndex, endIndex int) {
	last := len(items) - 1
	lanes = max(lanes, 1)
	if len(items) <= lanes {
		return 0, last
	}

	seed := findNearest(0, last, func(i int) float64 { return items[i].Start }, offset)
	trailing := offset + outerSize

	if lanes == 1 {
		endIndex = seed
		for endIndex < last && items[endIndex].End < trailing {
			endIndex++
		}
		return seed, endIndex
	}

	// Walk forward until every lane has an item reaching the trailing edge.
	endPerLane := make([]float64, lanes)
	endIndex = seed
	for endIndex <= last && anyBelow(endPerLane, trailing) {
		first, end := items[endIndex].Lanes()
		for l := first; l < end; l++ {
			endPerLane[l] = items[endIndex].End
		}
		endIndex++
	}
	endIndex = max(endIndex-1, seed)

	// Walk backward until every lane has an item starting before the
	// leading edge.
	startPerLane := make([]float64, lanes)
	for l := range startPerLane {
		startPerLane[l] = trailing
	}
	startIndex = seed
	for startIndex >= 0 && anyAtOrAbove(startPerLane, offset) {
		first, end := items[startIndex].Lanes()
		for l := first; l < end; l++ {
			startPerLane[l] = items[startIndex].Start
		}
		startIndex--
	}
	startIndex = min(startIndex+1, seed)

	// Snap to whole rows so partial rows at the edges are kept.
	startIndex = max(0, startIndex-startIndex%lanes)
	endIndex = min(last, endIndex+(lanes-1-endIndex%lanes))
	return startIndex, endIndex
}

func anyBelow(values []float64, limit float64) bool {
	for _, v := range values {
		if v < limit {
			return true
		}
	}
	return false
}

func anyAtOrAbove(values []float64, limit float64) bool {
	for _, v := range values {
		if v >= limit {
			return true
		}
	}
	return false
}
