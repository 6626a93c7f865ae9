package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration. They reproduce the relay's
// fixed constants when no config file is given.
const (
	DefaultListenHost        = "127.0.0.1"
	DefaultHTTPPort          = 25872
	DefaultAdminPort         = 25873
	DefaultGRPCPort          = 25874
	DefaultStalenessWindow   = 30 * time.Second
	DefaultBroadcastInterval = time.Second
	DefaultRedisChannel      = "heartrelay:heart_rate"
	DefaultLogLevel          = "info"
)

// Config holds the configuration parsed from the `server:` section of
// config.yaml. Other top-level keys (for example `agent:`) are ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all relay settings.
type ServerConfig struct {
	// ListenHost is the interface every listener binds to (default 127.0.0.1).
	ListenHost string `yaml:"listen_host"`

	// HTTPPort is the relay port serving / and /api/heart (default 25872).
	HTTPPort int `yaml:"http_port"`

	// MaxConnections caps concurrently open relay connections. 0 = unlimited.
	MaxConnections int `yaml:"max_connections"`

	// IdleTimeout closes idle keep-alive connections. 0 = never.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// StalenessWindow is how long a reading stays visible (default 30s).
	// Hot-reloadable.
	StalenessWindow time.Duration `yaml:"staleness_window"`

	// LogLevel is one of debug | info | warn | error. Hot-reloadable.
	LogLevel string `yaml:"log_level"`

	// Admin configures the metrics / WebSocket / alerts listener.
	Admin AdminConfig `yaml:"admin"`

	// Ingress configures the producer write paths.
	Ingress IngressConfig `yaml:"ingress"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// AdminConfig controls the admin listener.
type AdminConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`

	// BroadcastInterval is how often /ws/heart pushes the current value.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`
}

// IngressConfig groups the producer-facing write paths.
type IngressConfig struct {
	GRPC  GRPCIngressConfig  `yaml:"grpc"`
	Redis RedisIngressConfig `yaml:"redis"`
}

// GRPCIngressConfig configures the heartrelay.v1.Ingress gRPC listener.
type GRPCIngressConfig struct {
	Enabled bool       `yaml:"enabled"`
	Port    int        `yaml:"port"`
	Auth    AuthConfig `yaml:"auth"`
}

// AuthConfig controls producer authentication on the gRPC ingress.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return strings.ToLower(a.Header)
	}
	return "x-api-key"
}

// RedisIngressConfig configures the Redis pub/sub producer ingress.
type RedisIngressConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Addr        string `yaml:"addr"`
	Channel     string `yaml:"channel"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
}

// Password returns the Redis password resolved from the environment.
func (r RedisIngressConfig) Password() string {
	if r.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(r.PasswordEnv)
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold on the heart-rate value.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is "heart_beat <op> <number>" with op one of > >= < <= ==.
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 5 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// SlogLevel maps LogLevel onto a slog.Level. Unknown values map to Info;
// validate rejects them before this is reached.
func (s ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			ListenHost:      DefaultListenHost,
			HTTPPort:        DefaultHTTPPort,
			StalenessWindow: DefaultStalenessWindow,
			LogLevel:        DefaultLogLevel,
			Admin: AdminConfig{
				Enabled:           true,
				Port:              DefaultAdminPort,
				BroadcastInterval: DefaultBroadcastInterval,
			},
			Ingress: IngressConfig{
				GRPC: GRPCIngressConfig{
					Enabled: true,
					Port:    DefaultGRPCPort,
				},
				Redis: RedisIngressConfig{
					Channel: DefaultRedisChannel,
				},
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.ListenHost == "" {
		return fmt.Errorf("server.listen_host is required")
	}
	if err := checkPort("server.http_port", s.HTTPPort); err != nil {
		return err
	}
	if s.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must not be negative")
	}
	if s.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must not be negative")
	}
	if s.StalenessWindow <= 0 {
		return fmt.Errorf("server.staleness_window must be positive")
	}
	if s.StalenessWindow%time.Second != 0 {
		return fmt.Errorf("server.staleness_window must be whole seconds, got %s", s.StalenessWindow)
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}

	if s.Admin.Enabled {
		if err := checkPort("server.admin.port", s.Admin.Port); err != nil {
			return err
		}
		if s.Admin.BroadcastInterval <= 0 {
			return fmt.Errorf("server.admin.broadcast_interval must be positive")
		}
	}

	if s.Ingress.GRPC.Enabled {
		if err := checkPort("server.ingress.grpc.port", s.Ingress.GRPC.Port); err != nil {
			return err
		}
	}
	switch s.Ingress.GRPC.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.ingress.grpc.auth.mode %q unknown: want apikey|none", s.Ingress.GRPC.Auth.Mode)
	}

	if s.Ingress.Redis.Enabled {
		if s.Ingress.Redis.Addr == "" {
			return fmt.Errorf("server.ingress.redis.addr is required when redis ingress is enabled")
		}
		if s.Ingress.Redis.Channel == "" {
			return fmt.Errorf("server.ingress.redis.channel is required when redis ingress is enabled")
		}
	}

	ports := map[int]string{s.HTTPPort: "server.http_port"}
	for _, p := range []struct {
		on   bool
		name string
		port int
	}{
		{s.Admin.Enabled, "server.admin.port", s.Admin.Port},
		{s.Ingress.GRPC.Enabled, "server.ingress.grpc.port", s.Ingress.GRPC.Port},
	} {
		if !p.on {
			continue
		}
		if other, dup := ports[p.port]; dup {
			return fmt.Errorf("%s %d collides with %s", p.name, p.port, other)
		}
		ports[p.port] = p.name
	}

	for i, r := range s.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name is required", i)
		}
		if _, err := ParseCondition(r.Condition); err != nil {
			return fmt.Errorf("server.alerts.rules[%d] %q: %w", i, r.Name, err)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("server.alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}

func checkPort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s %d is out of range [1, 65535]", name, port)
	}
	return nil
}
