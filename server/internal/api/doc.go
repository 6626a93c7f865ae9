// Package api implements the relay's HTTP surface.
//
// New(store, observer) returns an http.Handler that serves:
//
//	/:            static page that polls /api/heart once a second
//	/api/heart:   {"heart_beat": <int>} or {"heart_beat": null}
//	anything else: 404 "Not Found"
//
// Routing matches the exact request path and ignores the method, query string
// and body, so every request lands in exactly one of the three branches.
// /api/heart always carries Access-Control-Allow-Origin: * so pages served
// from other origins (overlays, browser sources) can poll it.
//
// Recover and AccessLog are the middleware the server wraps around the
// handler. No external HTTP framework is used.
package api
