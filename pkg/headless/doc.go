// Package headless provides an in-memory host for the virtual package.
//
// It implements the container, node and resize-observer contracts that a
// real UI toolkit would supply, so a [virtual.Virtualizer] can be driven
// without a display: by the layout pipeline, the session API, the terminal
// viewer and tests.
//
// Events are delivered synchronously unless a Dispatch scheduler is set, in
// which case they are queued as frame callbacks the way a browser batches
// scroll events per frame.
package headless
