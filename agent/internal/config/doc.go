// Package config loads and watches the agent configuration file.
//
// Load(path) reads the `agent:` section, applies defaults (relay at
// 127.0.0.1:25874, 2s scrape, buffer 16, filter min 1, metric
// heart_rate_bpm) and validates sources and auth modes. Secrets are never
// stored in the file; *_env fields name the environment variables holding them.
//
// Watch(ctx, path, onChange) reloads the file on change. Only the filter
// bounds are applied live by the agent.
package config
