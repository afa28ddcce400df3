// Package pkg provides the libraries behind masonry, a headless
// virtualizer for masonry feeds.
//
// # Overview
//
// The pkg directory is organized into four areas:
//
//  1. [virtual] - The engine: size cache, lane layout, range calculation,
//     scroll observation and the frame loop
//  2. [headless], [breakpoint] - An in-memory host the engine runs against,
//     and width-driven lane configuration
//  3. [feed], [session], [pipeline] - Item documents, live sessions and the
//     load → layout → render pipeline
//  4. [cache], [config], [errors], [observability] - Infrastructure
//
// # Architecture
//
// The typical data flow through masonry:
//
//	feed.json / feed.toml
//	         ↓
//	    [feed] package (parse + validate)
//	         ↓
//	    [session] package (window + loop + virtualizer + rendered nodes)
//	         ↓
//	    [pipeline] package (settle, walk, persist sizes)
//	         ↓
//	    JSON/SVG output
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/masonry/pkg/feed"
//	    "github.com/matzehuels/masonry/pkg/pipeline"
//	)
//
//	f, _ := feed.Import("photos.json")
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, _ := runner.Execute(ctx, f, pipeline.Options{Formats: []string{"svg"}})
//	os.WriteFile("photos.svg", result.Artifacts["svg"], 0o644)
//
// [virtual]: github.com/matzehuels/masonry/pkg/virtual
// [headless]: github.com/matzehuels/masonry/pkg/headless
// [breakpoint]: github.com/matzehuels/masonry/pkg/breakpoint
// [feed]: github.com/matzehuels/masonry/pkg/feed
// [session]: github.com/matzehuels/masonry/pkg/session
// [pipeline]: github.com/matzehuels/masonry/pkg/pipeline
// [cache]: github.com/matzehuels/masonry/pkg/cache
// [config]: github.com/matzehuels/masonry/pkg/config
// [errors]: github.com/matzehuels/masonry/pkg/errors
// [observability]: github.com/matzehuels/masonry/pkg/observability
package pkg
