// Package compute filters raw sensor readings before they are shipped.
//
// Engine.Process rounds the scraped value and drops it when it is NaN,
// at or below zero, or outside the configured [min, max] bounds. The
// bounds are hot-reloadable through SetFilter. Process takes the current
// time explicitly so tests are deterministic.
package compute
