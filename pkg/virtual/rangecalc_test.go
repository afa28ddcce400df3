package virtual

import "testing"

func TestCalculateRangeGrid(t *testing.T) {
	items := layout(6, 3, 10, constSize(100), single)

	start, end := calculateRange(items, 3, 150, 100)
	if start != 3 || end != 5 {
		t.Fatalf("range = [%d, %d], want [3, 5]", start, end)
	}

	got := DefaultRangeExtractor(Range{StartIndex: start, EndIndex: end, Overscan: 1, Count: 6})
	want := []int{2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("indexes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("indexes = %v, want %v", got, want)
		}
	}
}

func TestCalculateRangeSmallList(t *testing.T) {
	items := layout(3, 3, 0, constSize(100), single)
	start, end := calculateRange(items, 3, 5000, 10)
	if start != 0 || end != 2 {
		t.Errorf("range = [%d, %d], want [0, 2]", start, end)
	}
}

func TestCalculateRangeSingleLane(t *testing.T) {
	items := layout(100, 1, 0, constSize(50), single)
	tests := []struct {
		offset, size float64
		start, end   int
	}{
		{0, 100, 0, 1},
		{0, 101, 0, 2},
		{120, 100, 2, 4},
		{4950, 100, 99, 99},
		{9000, 100, 99, 99},
	}
	for _, tt := range tests {
		start, end := calculateRange(items, 1, tt.offset, tt.size)
		if start != tt.start || end != tt.end {
			t.Errorf("calculateRange(%v, %v) = [%d, %d], want [%d, %d]",
				tt.offset, tt.size, start, end, tt.start, tt.end)
		}
	}
}

func TestCalculateRangeCoversVisibleItems(t *testing.T) {
	for _, lanes := range []int{1, 2, 3, 5} {
		items := layout(300, lanes, 7, varied, mixedSpan)
		total := contentEnd(items, lanes)

		for offset := 0.0; offset < total; offset += 37 {
			for _, size := range []float64{1, 120, 480} {
				start, end := calculateRange(items, lanes, offset, size)
				if start < 0 || end >= len(items) || start > end {
					t.Fatalf("lanes=%d offset=%v: bad range [%d, %d]", lanes, offset, start, end)
				}
				if lanes > 1 && (start%lanes != 0 || (end+1)%lanes != 0 && end != len(items)-1) {
					t.Fatalf("lanes=%d offset=%v: range [%d, %d] not row aligned", lanes, offset, start, end)
				}
				for _, it := range items {
					visible := it.Start < offset+size && it.End > offset
					if visible && (it.Index < start || it.Index > end) {
						t.Fatalf("lanes=%d offset=%v size=%v: visible item %d outside [%d, %d]",
							lanes, offset, size, it.Index, start, end)
					}
				}
			}
		}
	}
}
