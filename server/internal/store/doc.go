// Package store holds the relay's single latest heart-rate reading.
//
// Store is the only owner of the Reading: Set replaces it wholesale with a
// value stamped by the store's clock, Get hands out a copy of the value only
// while it is younger than the staleness window. One mutex guards the slot
// and the window; it is held for a timestamp comparison and a copy, never
// across I/O.
//
// A Store is constructed once per process and passed to the components that
// need it; there is no package-level instance.
package store
