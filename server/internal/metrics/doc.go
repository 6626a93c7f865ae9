// Package metrics exposes relay instrumentation in the Prometheus format.
//
// Collector owns a private registry (plus Go runtime collectors) and is
// served at /metrics on the admin listener. All recording methods are safe
// on a nil *Collector so components can run uninstrumented in tests.
package metrics
