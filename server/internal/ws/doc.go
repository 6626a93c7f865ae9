// Package ws streams the current heart-rate value to WebSocket subscribers.
//
// New(store, interval, observer) creates a Hub. Hub.Run(ctx) pushes the
// current value to every client each interval and closes all connections
// when ctx is cancelled. Hub.ServeHTTP upgrades a request, sends the current
// value immediately, then keeps the client on the broadcast list until it
// disconnects or falls behind by more than sendBufSize messages.
//
// Message format:
//
//	{"event": "heart_beat", "data": {"heart_beat": 72}}
//
// data has the same schema as GET /api/heart. The hub is mounted at
// /ws/heart on the admin listener and accepts all origins.
package ws
