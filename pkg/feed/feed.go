// Package feed defines the item documents masonry lays out.
//
// A feed is an ordered list of items. Each item has a stable key, an
// estimated size used before it is measured, and optionally its real
// rendered size and the number of lanes it spans:
//
//	{
//	  "name": "photos",
//	  "items": [
//	    {"key": "a", "title": "Harbor", "estimate": 200, "size": 236},
//	    {"key": "b", "title": "Panorama", "estimate": 120, "colSpan": 2}
//	  ]
//	}
//
// The same document can be written in TOML with [[items]] tables. Feeds
// are read with [Read], [Import] or [Parse] and written with [Write] or
// [Export].
package feed

import (
	"strconv"
	"strings"

	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/virtual"
)

// DefaultEstimate is used for items without an estimate.
const DefaultEstimate = 100.0

// Item is one entry of a feed.
type Item struct {
	Key      string  `json:"key" toml:"key"`
	Title    string  `json:"title,omitempty" toml:"title,omitempty"`
	Estimate float64 `json:"estimate,omitempty" toml:"estimate,omitempty"`
	Size     float64 `json:"size,omitempty" toml:"size,omitempty"`
	Width    float64 `json:"width,omitempty" toml:"width,omitempty"`
	ColSpan  int     `json:"colSpan,omitempty" toml:"col_span,omitempty"`
}

// Feed is an ordered item list.
type Feed struct {
	Name  string `json:"name,omitempty" toml:"name,omitempty"`
	Items []Item `json:"items" toml:"items"`
}

// Len returns the number of items.
func (f *Feed) Len() int { return len(f.Items) }

// Validate checks keys and sizes. Keys must be unique because the size
// cache is keyed by them.
func (f *Feed) Validate() error {
	if f.Name != "" {
		if err := errors.ValidateName(f.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFeed, err, "feed name")
		}
	}
	seen := make(map[string]int, len(f.Items))
	for i, it := range f.Items {
		if err := errors.ValidateKey(it.Key); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFeed, err, "item %d", i)
		}
		if prev, ok := seen[it.Key]; ok {
			return errors.New(errors.ErrCodeInvalidFeed, "items %d and %d share key %q", prev, i, it.Key)
		}
		seen[it.Key] = i
		for name, v := range map[string]float64{"estimate": it.Estimate, "size": it.Size, "width": it.Width} {
			if err := errors.ValidateSize(name, v); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidFeed, err, "item %q", it.Key)
			}
		}
		if it.ColSpan < 0 {
			return errors.New(errors.ErrCodeInvalidFeed, "item %q: colSpan must not be negative", it.Key)
		}
	}
	return nil
}

// Key returns the key of item index. Out of range indexes fall back to the
// index itself so a stale count never panics.
func (f *Feed) Key(index int) string {
	if index < 0 || index >= len(f.Items) {
		return strconv.Itoa(index)
	}
	return f.Items[index].Key
}

// EstimateSize returns the estimate of item index.
func (f *Feed) EstimateSize(index, lanes int) float64 {
	if index < 0 || index >= len(f.Items) || f.Items[index].Estimate <= 0 {
		return DefaultEstimate
	}
	return f.Items[index].Estimate
}

// ColSpan returns the lanes item index asks for. The virtualizer clamps it.
func (f *Feed) ColSpan(index, lanes int) int {
	if index < 0 || index >= len(f.Items) || f.Items[index].ColSpan < 1 {
		return 1
	}
	return f.Items[index].ColSpan
}

// Rendered returns the size item index has once rendered in a lane of
// laneWidth. Items without a real size render at their estimate.
func (f *Feed) Rendered(index int, laneWidth float64, horizontal bool) virtual.Rect {
	main := f.EstimateSize(index, 0)
	cross := laneWidth
	if index >= 0 && index < len(f.Items) {
		it := f.Items[index]
		if it.Size > 0 {
			main = it.Size
		}
		if it.Width > 0 {
			cross = it.Width
		}
	}
	if horizontal {
		return virtual.Rect{Width: main, Height: cross}
	}
	return virtual.Rect{Width: cross, Height: main}
}

// Apply wires the feed into opts: count, keys, estimates and spans.
func (f *Feed) Apply(opts *virtual.Options) {
	opts.Count = len(f.Items)
	opts.GetItemKey = f.Key
	opts.EstimateSize = f.EstimateSize
	opts.GetItemColSpan = f.ColSpan
}

// IndexOf returns the index of the item with key.
func (f *Feed) IndexOf(key string) (int, bool) {
	for i, it := range f.Items {
		if it.Key == key {
			return i, true
		}
	}
	return -1, false
}

// Filter returns a feed with the items whose title contains substr,
// ignoring case.
func (f *Feed) Filter(substr string) *Feed {
	if substr == "" {
		return f
	}
	out := &Feed{Name: f.Name}
	needle := strings.ToLower(substr)
	for _, it := range f.Items {
		if strings.Contains(strings.ToLower(it.Title), needle) {
			out.Items = append(out.Items, it)
		}
	}
	return out
}
