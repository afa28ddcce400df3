package headless

import (
	"slices"
	"strconv"

	"github.com/matzehuels/masonry/pkg/virtual"
)

// Surface renders a virtualizer's items into nodes the way a UI toolkit
// does on every pass: nodes are created for new keys, detached for keys
// that left the window, and measured after being laid out.
type Surface struct {
	v      *virtual.Virtualizer
	sizeOf func(index int) virtual.Rect
	nodes  map[string]*Node
	passes int
}

// NewSurface creates a surface for v. sizeOf returns the real rendered
// size of an item, which usually differs from the estimate.
func NewSurface(v *virtual.Virtualizer, sizeOf func(index int) virtual.Rect) *Surface {
	return &Surface{v: v, sizeOf: sizeOf, nodes: make(map[string]*Node)}
}

// Render runs one pass and returns the items that were rendered. Nodes are
// tagged under the virtualizer's IndexAttribute.
func (s *Surface) Render() []virtual.Item {
	s.passes++
	attr := s.v.Options().IndexAttribute
	items := s.v.GetVirtualItems().Items

	live := make(map[string]bool, len(items))
	rendered := make([]*Node, 0, len(items))
	for _, it := range items {
		live[it.Key] = true
		n, ok := s.nodes[it.Key]
		if !ok {
			n = NewNodeWithAttribute(attr, it.Index, s.sizeOf(it.Index))
			s.nodes[it.Key] = n
		} else {
			n.SetAttribute(attr, strconv.Itoa(it.Index))
			n.size = s.sizeOf(it.Index)
		}
		rendered = append(rendered, n)
	}
	for key, n := range s.nodes {
		if !live[key] {
			n.Detach()
			delete(s.nodes, key)
		}
	}

	for _, n := range rendered {
		s.v.MeasureElement(n)
	}
	s.v.MeasureElement(nil)
	return items
}

// Settle renders until a pass leaves the rendered geometry unchanged or
// maxPasses is reached, and returns the last rendered items.
func (s *Surface) Settle(maxPasses int) []virtual.Item {
	var prev []virtual.Item
	for range maxPasses {
		items := s.Render()
		if prev != nil && slices.Equal(prev, items) {
			return items
		}
		prev = items
	}
	return prev
}

// Node returns the live node for key.
func (s *Surface) Node(key string) (*Node, bool) {
	n, ok := s.nodes[key]
	return n, ok
}

// Len returns the number of live nodes.
func (s *Surface) Len() int { return len(s.nodes) }

// Passes returns the number of render passes so far.
func (s *Surface) Passes() int { return s.passes }
