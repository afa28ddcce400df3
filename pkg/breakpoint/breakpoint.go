// Package breakpoint maps a viewport width to a named lane configuration.
//
// A [Set] is an ascending list of breakpoints; the active one is the widest
// breakpoint whose MinWidth does not exceed the viewport width. A [Tracker]
// follows a [virtual.Window] and reports when the active breakpoint
// changes, so the host can push new Lanes and Gap into its virtualizer.
package breakpoint

import (
	"cmp"
	"slices"

	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/virtual"
)

// Breakpoint is one named lane configuration.
type Breakpoint struct {
	Name     string  `toml:"name" json:"name"`
	MinWidth float64 `toml:"min_width" json:"minWidth"`
	Lanes    int     `toml:"lanes" json:"lanes"`
	Gap      float64 `toml:"gap" json:"gap"`
}

// Set is a list of breakpoints. Use [Set.Sorted] or [New] before resolving.
type Set []Breakpoint

// Default returns the built-in breakpoints, in pixels.
func Default() Set {
	return Set{
		{Name: "mobile", MinWidth: 0, Lanes: 1, Gap: 8},
		{Name: "tablet", MinWidth: 640, Lanes: 2, Gap: 12},
		{Name: "desktop", MinWidth: 1024, Lanes: 3, Gap: 16},
		{Name: "wide", MinWidth: 1440, Lanes: 4, Gap: 16},
	}
}

// Terminal returns breakpoints for character-cell viewports.
func Terminal() Set {
	return Set{
		{Name: "narrow", MinWidth: 0, Lanes: 1, Gap: 1},
		{Name: "medium", MinWidth: 80, Lanes: 2, Gap: 1},
		{Name: "wide", MinWidth: 120, Lanes: 3, Gap: 2},
		{Name: "ultrawide", MinWidth: 180, Lanes: 4, Gap: 2},
	}
}

// New validates bps and returns them sorted by MinWidth.
func New(bps ...Breakpoint) (Set, error) {
	s := Set(bps).Sorted()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Sorted returns a copy of s ordered by MinWidth.
func (s Set) Sorted() Set {
	out := slices.Clone(s)
	slices.SortStableFunc(out, func(a, b Breakpoint) int { return cmp.Compare(a.MinWidth, b.MinWidth) })
	return out
}

// Validate checks names, lane counts and widths.
func (s Set) Validate() error {
	if len(s) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "at least one breakpoint is required")
	}
	seen := make(map[string]bool, len(s))
	widths := make(map[float64]string, len(s))
	for _, bp := range s {
		if err := errors.ValidateName(bp.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "breakpoint name")
		}
		if seen[bp.Name] {
			return errors.New(errors.ErrCodeInvalidConfig, "duplicate breakpoint %q", bp.Name)
		}
		seen[bp.Name] = true
		if other, ok := widths[bp.MinWidth]; ok {
			return errors.New(errors.ErrCodeInvalidConfig, "breakpoints %q and %q share min_width %v", other, bp.Name, bp.MinWidth)
		}
		widths[bp.MinWidth] = bp.Name
		if err := errors.ValidateLanes(bp.Lanes); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "breakpoint %q", bp.Name)
		}
		if err := errors.ValidateSize("min_width", bp.MinWidth); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "breakpoint %q", bp.Name)
		}
		if err := errors.ValidateSize("gap", bp.Gap); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "breakpoint %q", bp.Name)
		}
	}
	return nil
}

// Resolve returns the breakpoint active at width. Widths below every
// MinWidth resolve to the narrowest breakpoint. An empty set resolves to a
// single lane.
func (s Set) Resolve(width float64) Breakpoint {
	if len(s) == 0 {
		return Breakpoint{Name: "default", Lanes: 1}
	}
	active := s[0]
	for _, bp := range s[1:] {
		if bp.MinWidth > width {
			break
		}
		active = bp
	}
	return active
}

// Lookup returns the breakpoint named name.
func (s Set) Lookup(name string) (Breakpoint, bool) {
	for _, bp := range s {
		if bp.Name == name {
			return bp, true
		}
	}
	return Breakpoint{}, false
}

// Apply writes the lane configuration of bp into opts.
func (bp Breakpoint) Apply(opts *virtual.Options) {
	opts.Lanes = bp.Lanes
	opts.Gap = bp.Gap
}

// Tracker follows the width of a window.
type Tracker struct {
	set      Set
	window   virtual.Window
	current  Breakpoint
	onChange func(Breakpoint)
	remove   func()
}

// Track resolves the current breakpoint of w and calls onChange whenever a
// resize moves the width into a different breakpoint. onChange is not
// called for the initial breakpoint; read it with Current.
func Track(w virtual.Window, set Set, onChange func(Breakpoint)) *Tracker {
	t := &Tracker{set: set.Sorted(), window: w, onChange: onChange}
	t.current = t.set.Resolve(w.InnerSize().Width)
	t.remove = w.OnResize(t.update)
	return t
}

func (t *Tracker) update() {
	bp := t.set.Resolve(t.window.InnerSize().Width)
	if bp == t.current {
		return
	}
	t.current = bp
	if t.onChange != nil {
		t.onChange(bp)
	}
}

// Current returns the active breakpoint.
func (t *Tracker) Current() Breakpoint { return t.current }

// Stop removes the resize listener.
func (t *Tracker) Stop() {
	if t.remove != nil {
		t.remove()
		t.remove = nil
	}
}
