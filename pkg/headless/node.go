package headless

import (
	"strconv"

	"github.com/matzehuels/masonry/pkg/virtual"
)

// Node is an in-memory rendered item.
type Node struct {
	attrs     map[string]string
	size      virtual.Rect
	connected bool
}

// NewNode creates a connected node tagged with index under
// [virtual.DefaultIndexAttribute].
func NewNode(index int, size virtual.Rect) *Node {
	return NewNodeWithAttribute(virtual.DefaultIndexAttribute, index, size)
}

// NewNodeWithAttribute creates a connected node tagged with index under
// attr, for virtualizers with a custom IndexAttribute.
func NewNodeWithAttribute(attr string, index int, size virtual.Rect) *Node {
	n := &Node{attrs: make(map[string]string), size: size, connected: true}
	n.attrs[attr] = strconv.Itoa(index)
	return n
}

func (n *Node) Attribute(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// SetAttribute sets an attribute. An empty value removes it.
func (n *Node) SetAttribute(name, value string) {
	if value == "" {
		delete(n.attrs, name)
		return
	}
	n.attrs[name] = value
}

func (n *Node) Connected() bool { return n.connected }

// Detach marks the node as removed from the document.
func (n *Node) Detach() { n.connected = false }

func (n *Node) OffsetSize() virtual.Rect { return n.size }

// Observers is a registry of resize observers. Resizing a node through it
// notifies every observer watching that node.
type Observers struct {
	list []*ResizeObserver
}

// New creates a resize observer; its signature matches
// [virtual.Options.NewItemObserver].
func (o *Observers) New(cb func([]virtual.ResizeEntry)) virtual.ItemObserver {
	ro := &ResizeObserver{cb: cb, targets: make(map[virtual.Node]bool)}
	o.list = append(o.list, ro)
	return ro
}

// Resize sets n's size and delivers a border-box entry to every observer
// watching it.
func (o *Observers) Resize(n *Node, size virtual.Rect) {
	n.size = size
	entry := virtual.ResizeEntry{
		Target:        n,
		BorderBoxSize: []virtual.BoxSize{{InlineSize: size.Width, BlockSize: size.Height}},
	}
	for _, ro := range o.list {
		if ro.targets[n] {
			ro.cb([]virtual.ResizeEntry{entry})
		}
	}
}

// Observed returns the number of nodes watched across all live observers.
func (o *Observers) Observed() int {
	n := 0
	for _, ro := range o.list {
		n += len(ro.targets)
	}
	return n
}

// ResizeObserver watches a set of nodes.
type ResizeObserver struct {
	cb      func([]virtual.ResizeEntry)
	targets map[virtual.Node]bool
}

func (r *ResizeObserver) Observe(n virtual.Node) { r.targets[n] = true }

func (r *ResizeObserver) Unobserve(n virtual.Node) { delete(r.targets, n) }

func (r *ResizeObserver) Disconnect() { clear(r.targets) }

var (
	_ virtual.Node         = (*Node)(nil)
	_ virtual.ItemObserver = (*ResizeObserver)(nil)
)
