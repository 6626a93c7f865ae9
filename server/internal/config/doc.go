// Package config loads the relay configuration from the `server:` section of
// config.yaml (other top-level keys are ignored by the server binary).
//
// Config fields:
//   - ListenHost:        interface all listeners bind to (default 127.0.0.1)
//   - HTTPPort:          relay port for / and /api/heart (default 25872)
//   - MaxConnections:    relay connection cap, 0 = unlimited
//   - IdleTimeout:       keep-alive idle timeout, 0 = none
//   - StalenessWindow:   how long a reading stays fresh (default 30s)
//   - LogLevel:          debug | info | warn | error
//   - Admin:             /metrics, /ws/heart and /alerts listener (default :25873)
//   - Ingress.GRPC:      heartrelay.v1.Ingress listener (default :25874) and API key auth
//   - Ingress.Redis:     optional pub/sub producer ingress
//   - Alerts:            heart_beat threshold rules and webhook targets
//
// Default() is the configuration used without a file. Load(path) applies
// defaults before unmarshalling, then validates. Watch(ctx, path, fn) reloads
// on file changes; the caller decides which fields apply live.
package config
