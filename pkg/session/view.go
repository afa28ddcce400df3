package session

import (
	"slices"

	"github.com/matzehuels/masonry/pkg/virtual"
)

// View is what a renderer needs to draw the session's current frame.
type View struct {
	ID          string            `json:"id"`
	Count       int               `json:"count"`
	Breakpoint  string            `json:"breakpoint,omitempty"`
	Lanes       int               `json:"lanes"`
	Gap         float64           `json:"gap"`
	Horizontal  bool              `json:"horizontal,omitempty"`
	Viewport    virtual.Rect      `json:"viewport"`
	Offset      float64           `json:"offset"`
	TotalSize   float64           `json:"totalSize"`
	Range       *Range            `json:"range,omitempty"`
	Items       []virtual.Item    `json:"items"`
	IsScrolling bool              `json:"isScrolling"`
	Direction   virtual.Direction `json:"direction,omitempty"`
	Measured    int               `json:"measured"`
}

// Range is the visible index window before overscan.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// View returns the current frame.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.v
	view := View{
		ID:          s.ID,
		Count:       s.feed.Len(),
		Breakpoint:  s.bp,
		Lanes:       s.vopts.Lanes,
		Gap:         s.vopts.Gap,
		Horizontal:  s.vopts.Horizontal,
		Viewport:    s.window.InnerSize(),
		Offset:      v.ScrollOffset(),
		TotalSize:   v.GetTotalSize(),
		Items:       slices.Clone(v.GetVirtualItems().Items),
		IsScrolling: v.IsScrolling(),
		Direction:   v.ScrollDirection(),
		Measured:    v.Sizes().Len(),
	}
	if r := v.Range(); r != nil {
		view.Range = &Range{Start: r.StartIndex, End: r.EndIndex}
	}
	if view.Items == nil {
		view.Items = []virtual.Item{}
	}
	return view
}

// Measurements returns the geometry of every item, measured or estimated.
func (s *Session) Measurements() []virtual.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.v.GetMeasurements())
}

// ItemAt returns the item covering offset along the scroll axis.
func (s *Session) ItemAt(offset float64) (virtual.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetVirtualItemForOffset(offset)
}
