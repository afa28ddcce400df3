package cache

// Keyer generates cache keys. Keys embed a hash of every input that affects
// the cached value, so a changed option is a miss rather than a stale hit.
type Keyer interface {
	// SizesKey addresses a size-cache snapshot for a feed.
	SizesKey(feedHash string, opts SizesKeyOpts) string

	// LayoutKey addresses a finished layout result for a feed.
	LayoutKey(feedHash string, opts LayoutKeyOpts) string

	// SessionKey addresses the persisted state of an API session.
	SessionKey(id string) string
}

// SizesKeyOpts are the inputs a measured size depends on. Sizes do not
// depend on the lane count.
type SizesKeyOpts struct {
	Horizontal bool `json:"horizontal"`
}

// LayoutKeyOpts are the inputs a layout result depends on.
type LayoutKeyOpts struct {
	Lanes      int     `json:"lanes"`
	Gap        float64 `json:"gap"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Offset     float64 `json:"offset"`
	Overscan   int     `json:"overscan"`
	Horizontal bool    `json:"horizontal"`
	ScrollTo   string  `json:"scroll_to,omitempty"`
	Align      string  `json:"align,omitempty"`
	Exhaustive bool    `json:"exhaustive,omitempty"`

	// Layout and Breakpoints are canonical renderings of the remaining
	// layout settings.
	Layout      string `json:"layout,omitempty"`
	Breakpoints string `json:"breakpoints,omitempty"`
}

// DefaultKeyer generates unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SizesKey returns "sizes:<hash>".
func (DefaultKeyer) SizesKey(feedHash string, opts SizesKeyOpts) string {
	return hashKey("sizes", feedHash, opts)
}

// LayoutKey returns "layout:<hash>".
func (DefaultKeyer) LayoutKey(feedHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", feedHash, opts)
}

// SessionKey returns "session:<id>".
func (DefaultKeyer) SessionKey(id string) string {
	return "session:" + id
}
