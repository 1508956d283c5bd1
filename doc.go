// Package winselect implements a readiness-based I/O multiplexer: a
// Selector that fans a bounded, array-based native poll primitive out
// across a pool of helper goroutines, each owning its own
// MAX_SELECTABLE_FDS-sized slice of the registered channel table.
//
// A Selector is built with Open, channels are bound to it with
// Register, and readiness is discovered by calling Select, SelectNow,
// or SelectTimeout in a loop and draining SelectedKeys after each
// round. A channel is unregistered by cancelling its SelectionKey, which
// takes effect at the next round, or at once by Selector.Deregister.
// Closing the channel itself neither cancels its key nor unregisters it.
package winselect
