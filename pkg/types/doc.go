// Package types defines the JSON payloads shared by the relay's HTTP API,
// the WebSocket stream and the Redis ingress.
package types
