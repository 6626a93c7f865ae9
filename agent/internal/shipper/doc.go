// Package shipper submits filtered heart-rate readings to the relay's gRPC
// ingress (heartrelay.v1.Ingress/Submit).
//
// Ship() is non-blocking: readings go into an in-memory channel and the
// oldest is evicted when it is full. Run() drains the channel, reconnecting
// with truncated exponential backoff (0.5s to 30s, ±25% jitter). Readings
// older than maxReadingAge are discarded instead of sent, and permanent gRPC
// errors (Unauthenticated, PermissionDenied, InvalidArgument) drop the
// reading instead of retrying it.
//
// With server_auth.mode apikey the key travels in gRPC metadata under
// server_auth.header.
package shipper
