// Package receiver is the relay's producer ingress: the only writer of the
// reading store.
//
// Ingress.Submit is the single producer operation. It stamps and stores the
// value, counts it and feeds the alert engine; it fails only when the clock
// is unavailable, leaving the previous reading in place. Values are never
// range-checked, deduplicated or rate-limited here.
//
// Two transports call Submit:
//   - Receiver implements relayrpc.IngressServer (heartrelay.v1.Ingress/Submit);
//     API key authentication is enforced by the gRPC server interceptor.
//   - SubscribeRedis consumes a Redis pub/sub channel whose messages are
//     {"heart_rate": N} documents or bare integers.
package receiver
