// Package pipeline lays out feeds headlessly for the CLI and the API.
//
// This package implements the complete load → layout → render pipeline so
// that every entry point measures, caches and renders feeds the same way.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read and validate a feed document (JSON or TOML)
//  2. Layout: Mount a virtualizer over the feed in an in-memory viewport,
//     render and measure until stable, optionally walking the whole feed
//  3. Render: Generate output in various formats (JSON, SVG)
//
// Measured sizes are persisted per feed, so a second run over the same
// feed lays out from exact sizes. Finished layouts are cached by every
// option that affects them.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, f, pipeline.Options{
//	    Width:   1280,
//	    Height:  800,
//	    Formats: []string{"svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/breakpoint"
	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/config"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/session"
	"github.com/matzehuels/masonry/pkg/virtual"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultWidth is the default viewport width in pixels.
	DefaultWidth = 1280.0

	// DefaultHeight is the default viewport height in pixels.
	DefaultHeight = 800.0

	// DefaultAlign is the alignment used for ScrollTo.
	DefaultAlign = virtual.AlignStart

	// TTLLayout is how long finished layouts are cached.
	TTLLayout = 24 * time.Hour
)

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatSVG:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Viewport
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// Lanes fixes the lane count. Zero resolves it from Breakpoints.
	Lanes int `json:"lanes,omitempty"`

	// Scroll position
	Offset   float64       `json:"offset,omitempty"`
	ScrollTo string        `json:"scroll_to,omitempty"` // item key
	Align    virtual.Align `json:"align,omitempty"`

	// Exhaustive scrolls through the whole feed so every item is measured.
	Exhaustive bool `json:"exhaustive,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`

	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Layout      config.Layout  `json:"-"`
	Breakpoints breakpoint.Set `json:"-"`
	Logger      *log.Logger    `json:"-"`
}

// Layout is the outcome of the layout stage.
type Layout struct {
	View  session.View        `json:"view"`
	Items []virtual.Item      `json:"items"`
	Sizes []virtual.SizeEntry `json:"sizes"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// FeedHash is the content hash of the feed.
	FeedHash string

	// Layout contains the viewport and every item's geometry.
	Layout Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ItemCount  int
	Measured   int
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SizesHit  bool // Whether measured sizes were restored
	LayoutHit bool // Whether the layout came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: json, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAlign checks that an alignment is valid.
func ValidateAlign(a virtual.Align) error {
	switch a {
	case virtual.AlignStart, virtual.AlignCenter, virtual.AlignEnd, virtual.AlignAuto:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidInput, "invalid align: %q (must be one of: start, center, end, auto)", a)
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks fields and applies defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Width < 0 || o.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "viewport must be positive, got %vx%v", o.Width, o.Height)
	}
	if o.Lanes != 0 {
		if err := errors.ValidateLanes(o.Lanes); err != nil {
			return err
		}
	}
	if err := errors.ValidateSize("offset", o.Offset); err != nil {
		return err
	}
	if o.Align == "" {
		o.Align = DefaultAlign
	}
	if err := ValidateAlign(o.Align); err != nil {
		return err
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if len(o.Breakpoints) == 0 {
		o.Breakpoints = breakpoint.Default()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// sessionOptions maps pipeline options to a session.
func (o *Options) sessionOptions(sizes []virtual.SizeEntry) session.Options {
	return session.Options{
		Width:         o.Width,
		Height:        o.Height,
		Lanes:         o.Lanes,
		Breakpoints:   o.Breakpoints,
		Layout:        o.Layout,
		InitialOffset: o.Offset,
		InitialSizes:  sizes,
		Logger:        o.Logger,
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Lanes:       o.Lanes,
		Gap:         o.Layout.Gap,
		Width:       o.Width,
		Height:      o.Height,
		Offset:      o.Offset,
		Overscan:    o.Layout.Overscan,
		Horizontal:  o.Layout.Horizontal,
		ScrollTo:    o.ScrollTo,
		Align:       string(o.Align),
		Exhaustive:  o.Exhaustive,
		Layout:      fmt.Sprintf("%+v", o.Layout),
		Breakpoints: fmt.Sprintf("%+v", o.Breakpoints),
	}
}
