// Package auth guards the relay's gRPC producer ingress.
//
// APIKeyInterceptor(mode, header, key) returns a gRPC UnaryServerInterceptor
// that checks the producer's API key in the named metadata header.
//
// When mode != "apikey" or key == "", every call passes through; that is the
// default for a loopback-only relay. Otherwise a missing or wrong key ends
// the call with codes.Unauthenticated before the ingress runs.
package auth
