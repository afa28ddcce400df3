// Package virtual implements a virtualized masonry layout engine.
//
// A [Virtualizer] places a variable-height item list into a fixed number of
// parallel lanes (columns), computes which items intersect a scrollable
// viewport, and exposes only that subset (plus an overscan margin) to the
// renderer. Items may span several lanes ("wide" items).
//
// # Architecture
//
// The engine is layered, leaves first:
//
//   - keys.go: index → key mapping, the default range extractor and the
//     float-tolerant [ApproxEqual] used to decide when scrolling settled.
//   - memo.go: [Memo], a dependency-tracked compute cache. Every derived
//     value (measurements, range, indexes, virtual items) is recomputed only
//     when its dependency tuple changes.
//   - sizecache.go: [SizeCache], exact measured sizes keyed by item key.
//   - lanes.go: the lane layout engine (greedy shortest-lane packing with
//     lane-window search for spanning items).
//   - rangecalc.go: binary search plus lane-aware extension to find the
//     visible window.
//   - observe.go: the host contracts ([Element], [Window], [Node]) and the
//     observation adapters for elements and windows.
//   - virtualizer.go, scroll.go: the stateful facade.
//
// # Threading
//
// A Virtualizer is single-threaded. All callbacks (scroll, resize, frames,
// timers) must be delivered from one goroutine, typically the host's event
// loop. [Loop] is a deterministic [Scheduler] that a host drains once per
// frame.
//
// # Usage
//
//	loop := virtual.NewLoop()
//	opts := virtual.DefaultOptions()
//	opts.Count = len(items)
//	opts.Lanes = 3
//	opts.Gap = 10
//	opts.Scheduler = loop
//	opts.EstimateSize = func(i, lanes int) float64 { return 100 }
//	opts.GetScrollElement = func() virtual.Container { return el }
//	opts.ObserveElementRect = virtual.ObserveElementRect
//	opts.ObserveElementOffset = virtual.ObserveElementOffset
//	opts.ScrollToFn = virtual.ElementScroll
//
//	v := virtual.New(opts)
//	cleanup := v.Mount()
//	defer cleanup()
//	v.Update()
//
//	for _, item := range v.GetVirtualItems().Items {
//	    // render item at (item.Lane, item.Start)
//	}
package virtual
