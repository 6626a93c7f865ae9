package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
agent:
  server_endpoint: "relay.local:25874"
  scrape_interval: 1s
  buffer_size: 4
  filter:
    min: 30
    max: 220
  sources:
    - id: watch
      type: prometheus
      endpoint: "http://localhost:9100/metrics"
      metric: hr_bpm
      auth:
        mode: none
    - id: bridge
      type: json
      endpoint: "http://localhost:8000/heart"
`
	cfg := loadFromString(t, yaml)

	if cfg.Agent.ServerEndpoint != "relay.local:25874" {
		t.Errorf("server_endpoint: got %q", cfg.Agent.ServerEndpoint)
	}
	if cfg.Agent.ScrapeInterval != time.Second {
		t.Errorf("scrape_interval: got %v", cfg.Agent.ScrapeInterval)
	}
	if cfg.Agent.BufferSize != 4 {
		t.Errorf("buffer_size: got %d", cfg.Agent.BufferSize)
	}
	if cfg.Agent.Filter != (FilterConfig{Min: 30, Max: 220}) {
		t.Errorf("filter: got %+v", cfg.Agent.Filter)
	}
	if len(cfg.Agent.Sources) != 2 {
		t.Fatalf("sources: got %d, want 2", len(cfg.Agent.Sources))
	}
	if got := cfg.Agent.Sources[0].Metric; got != "hr_bpm" {
		t.Errorf("metric: got %q", got)
	}
	if got := cfg.Agent.Sources[1].Type; got != "json" {
		t.Errorf("source type: got %q", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	yaml := `
agent:
  sources:
    - id: watch
      type: prometheus
      endpoint: "http://localhost:9100/metrics"
`
	cfg := loadFromString(t, yaml)

	if cfg.Agent.ServerEndpoint != DefaultServerEndpoint {
		t.Errorf("default server_endpoint: got %q", cfg.Agent.ServerEndpoint)
	}
	if cfg.Agent.ScrapeInterval != DefaultScrapeInterval {
		t.Errorf("default scrape_interval: got %v, want %v", cfg.Agent.ScrapeInterval, DefaultScrapeInterval)
	}
	if cfg.Agent.BufferSize != DefaultBufferSize {
		t.Errorf("default buffer_size: got %d, want %d", cfg.Agent.BufferSize, DefaultBufferSize)
	}
	if cfg.Agent.Filter.Min != DefaultMinBPM || cfg.Agent.Filter.Max != 0 {
		t.Errorf("default filter: got %+v", cfg.Agent.Filter)
	}
	if got := cfg.Agent.Sources[0].Metric; got != DefaultMetric {
		t.Errorf("default metric: got %q, want %q", got, DefaultMetric)
	}
	if got := cfg.Agent.ServerAuth.Header; got != "x-api-key" {
		t.Errorf("default server_auth.header: got %q", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "empty endpoint",
			yaml: "agent:\n  server_endpoint: \"\"\n",
			want: "server_endpoint is required",
		},
		{
			name: "zero interval",
			yaml: "agent:\n  scrape_interval: 0s\n",
			want: "scrape_interval must be positive",
		},
		{
			name: "unknown server auth",
			yaml: "agent:\n  server_auth:\n    mode: mtls\n",
			want: "server_auth.mode",
		},
		{
			name: "max below min",
			yaml: "agent:\n  filter:\n    min: 100\n    max: 50\n",
			want: "below min",
		},
		{
			name: "unknown source type",
			yaml: `
agent:
  sources:
    - id: mystery
      type: otelcol
      endpoint: "http://localhost:8888/metrics"
`,
			want: "unknown type",
		},
		{
			name: "duplicate id",
			yaml: `
agent:
  sources:
    - {id: a, type: json, endpoint: "http://a"}
    - {id: a, type: json, endpoint: "http://b"}
`,
			want: "duplicate id",
		},
		{
			name: "unknown source auth",
			yaml: `
agent:
  sources:
    - id: watch
      type: json
      endpoint: "http://localhost:8000/heart"
      auth:
        mode: magictoken
`,
			want: "unknown auth mode",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadStringErr(t, tc.yaml)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestAuthConfig_Secrets(t *testing.T) {
	t.Setenv("TEST_API_KEY", "supersecret")
	t.Setenv("TEST_BEARER_TOKEN", "mytoken")
	t.Setenv("TEST_PASSWORD", "hunter2")

	a := AuthConfig{KeyEnv: "TEST_API_KEY", TokenEnv: "TEST_BEARER_TOKEN", PasswordEnv: "TEST_PASSWORD"}
	if got := a.Key(); got != "supersecret" {
		t.Errorf("Key(): got %q", got)
	}
	if got := a.Token(); got != "mytoken" {
		t.Errorf("Token(): got %q", got)
	}
	if got := a.Password(); got != "hunter2" {
		t.Errorf("Password(): got %q", got)
	}
	if got := (AuthConfig{}).Key(); got != "" {
		t.Errorf("Key() with no KeyEnv: got %q, want empty", got)
	}
}

func TestWatch_ReloadsFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	writeFile(t, path, "agent:\n  filter:\n    max: 200\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go Watch(ctx, path, func(c *Config) { got <- c }) //nolint:errcheck
	time.Sleep(50 * time.Millisecond)

	writeFile(t, path, "agent:\n  filter:\n    max: 180\n")

	select {
	case c := <-got:
		if c.Agent.Filter.Max != 180 {
			t.Errorf("reloaded max: got %d, want 180", c.Agent.Filter.Max)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatch_InvalidFileKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	writeFile(t, path, "agent:\n  buffer_size: 8\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go Watch(ctx, path, func(c *Config) { got <- c }) //nolint:errcheck
	time.Sleep(50 * time.Millisecond)

	writeFile(t, path, "agent:\n  buffer_size: -1\n")

	select {
	case c := <-got:
		t.Fatalf("onChange called with invalid config: %+v", c.Agent)
	case <-time.After(500 * time.Millisecond):
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, content)
	return Load(path)
}
