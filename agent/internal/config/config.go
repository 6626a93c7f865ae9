package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultServerEndpoint = "127.0.0.1:25874"
	DefaultScrapeInterval = 2 * time.Second
	DefaultBufferSize     = 16
	DefaultMetric         = "heart_rate_bpm"
	DefaultMinBPM         = 1
)

// Config is the top-level agent configuration parsed from YAML. Other
// top-level keys (for example `server:`) are ignored so one file can serve
// both binaries.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// ServerEndpoint is the gRPC ingress address of the relay (host:port).
	ServerEndpoint string `yaml:"server_endpoint"`

	// ScrapeInterval controls how often each source is polled. Keep it well
	// below the relay's staleness window or readings will flicker to null.
	ScrapeInterval time.Duration `yaml:"scrape_interval"`

	// BufferSize is the number of readings held while the relay is
	// unreachable. Older readings are evicted first.
	BufferSize int `yaml:"buffer_size"`

	// Sources is the list of sensor bridges to poll.
	Sources []Source `yaml:"sources"`

	// ServerAuth configures how the agent authenticates to the relay:
	// apikey | none.
	ServerAuth AuthConfig `yaml:"server_auth"`

	// Filter bounds the readings that are forwarded. Hot-reloadable.
	Filter FilterConfig `yaml:"filter"`
}

// Source describes one sensor bridge.
type Source struct {
	// ID is a unique, human-readable identifier for this source.
	ID string `yaml:"id"`

	// Type is prometheus (a gauge in text exposition) or json
	// ({"heart_rate": 72}).
	Type string `yaml:"type"`

	// Endpoint is the full URL to poll.
	Endpoint string `yaml:"endpoint"`

	// Metric is the gauge name read from a prometheus source.
	// Defaults to heart_rate_bpm.
	Metric string `yaml:"metric"`

	// Auth configures how the agent authenticates to this source.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// AuthConfig specifies an authentication mode.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	// ServerAuth only accepts apikey | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header carries the API key. For ServerAuth it defaults to x-api-key.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv holds the bearer token variable name.
	TokenEnv string `yaml:"token_env"`

	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds per-source TLS dial options.
type TLSConfig struct {
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// FilterConfig bounds forwarded readings. Readings at or below zero are
// always dropped; a sensor reports 0 while it has no skin contact.
type FilterConfig struct {
	// Min is the lowest forwarded bpm. Defaults to 1.
	Min int `yaml:"min"`

	// Max is the highest forwarded bpm. 0 = no upper bound.
	Max int `yaml:"max"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	for i := range cfg.Agent.Sources {
		if cfg.Agent.Sources[i].Type == "prometheus" && cfg.Agent.Sources[i].Metric == "" {
			cfg.Agent.Sources[i].Metric = DefaultMetric
		}
	}
	if cfg.Agent.ServerAuth.Header == "" {
		cfg.Agent.ServerAuth.Header = "x-api-key"
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			ServerEndpoint: DefaultServerEndpoint,
			ScrapeInterval: DefaultScrapeInterval,
			BufferSize:     DefaultBufferSize,
			Filter:         FilterConfig{Min: DefaultMinBPM},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.ServerEndpoint == "" {
		return fmt.Errorf("agent.server_endpoint is required")
	}
	if a.ScrapeInterval <= 0 {
		return fmt.Errorf("agent.scrape_interval must be positive")
	}
	if a.BufferSize <= 0 {
		return fmt.Errorf("agent.buffer_size must be positive")
	}
	switch a.ServerAuth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("agent.server_auth.mode %q unknown: want apikey|none", a.ServerAuth.Mode)
	}
	if a.Filter.Min < 0 || a.Filter.Max < 0 {
		return fmt.Errorf("agent.filter bounds must not be negative")
	}
	if a.Filter.Max > 0 && a.Filter.Max < a.Filter.Min {
		return fmt.Errorf("agent.filter.max %d is below min %d", a.Filter.Max, a.Filter.Min)
	}

	seen := make(map[string]bool, len(a.Sources))
	for i, src := range a.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if seen[src.ID] {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, src.ID)
		}
		seen[src.ID] = true
		if src.Endpoint == "" {
			return fmt.Errorf("sources[%d] %q: endpoint is required", i, src.ID)
		}
		switch src.Type {
		case "prometheus", "json":
		default:
			return fmt.Errorf("sources[%d] %q: unknown type %q", i, src.ID, src.Type)
		}
		switch src.Auth.Mode {
		case "mtls", "apikey", "bearer", "basic", "none", "":
		default:
			return fmt.Errorf("sources[%d] %q: unknown auth mode %q", i, src.ID, src.Auth.Mode)
		}
	}
	return nil
}
