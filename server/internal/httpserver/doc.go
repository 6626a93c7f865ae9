// Package httpserver runs an http.Handler on a loopback TCP listener with one
// goroutine per accepted connection (net/http's model).
//
// Listen binds once; callers treat a bind error as fatal. Errors while
// serving a single connection (malformed requests, client resets, TLS or
// protocol errors) are logged through slog by the server's ErrorLog and
// never stop the accept loop.
//
// By default there is no connection cap and no idle timeout. Both can be set
// with Options; the relay exposes them as max_connections and idle_timeout.
package httpserver
