package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/heartrelay/heartrelay/server/internal/config"
)

// testConfig returns the default config with every listener on a random port.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.HTTPPort = 0
	cfg.Server.Admin.Port = 0
	cfg.Server.Ingress.GRPC.Port = 0
	return cfg
}

// startRelay builds and runs a relay until the test ends.
func startRelay(t *testing.T, cfg *config.Config) *relay {
	t.Helper()

	r, err := newRelay(cfg, new(slog.LevelVar))
	if err != nil {
		t.Fatalf("newRelay: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("relay did not shut down")
		}
	})
	return r
}

// closeListeners releases everything newRelay bound, for relays that are
// never run.
func (r *relay) closeListeners() {
	if r.http != nil {
		r.http.Close() //nolint:errcheck
	}
	if r.admin != nil {
		r.admin.Close() //nolint:errcheck
	}
	if r.grpcLn != nil {
		r.grpcLn.Close() //nolint:errcheck
	}
}

func httpGet(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func submitTo(t *testing.T, r *relay, key string, bpm int32) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return submit(ctx, r.grpcLn.Addr().String(), "x-api-key", key, bpm)
}

func TestRelay_SubmitThenRead(t *testing.T) {
	r := startRelay(t, testConfig())
	heart := "http://" + r.http.Addr().String() + "/api/heart"

	if got := httpGet(t, heart); got != `{"heart_beat":null}` {
		t.Fatalf("before submit: got %s", got)
	}

	msg, err := submitTo(t, r, "", 72)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if msg != "heart beat updated" {
		t.Errorf("message: got %q", msg)
	}

	if got := httpGet(t, heart); got != `{"heart_beat":72}` {
		t.Errorf("after submit: got %s", got)
	}
}

func TestRelay_AdminSurfaces(t *testing.T) {
	r := startRelay(t, testConfig())
	if _, err := submitTo(t, r, "", 64); err != nil {
		t.Fatalf("submit: %v", err)
	}

	admin := "http://" + r.admin.Addr().String()
	body := httpGet(t, admin+"/metrics")
	for _, want := range []string{
		`heartrelay_submissions_total{result="accepted"} 1`,
		`heartrelay_heart_rate_bpm 64`,
		`heartrelay_reading_fresh 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics missing %q", want)
		}
	}

	if got := strings.TrimSpace(httpGet(t, admin+"/alerts")); got != "[]" {
		t.Errorf("/alerts: got %s, want []", got)
	}
}

func TestRelay_RelayPortKeepsStrictRouting(t *testing.T) {
	r := startRelay(t, testConfig())
	resp, err := http.Get("http://" + r.http.Addr().String() + "/metrics") //nolint:noctx
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestRelay_APIKeyRequired(t *testing.T) {
	t.Setenv("HEARTRELAY_TEST_KEY", "s3cret")
	cfg := testConfig()
	cfg.Server.Ingress.GRPC.Auth = config.AuthConfig{Mode: "apikey", KeyEnv: "HEARTRELAY_TEST_KEY"}
	r := startRelay(t, cfg)

	if _, err := submitTo(t, r, "", 80); err == nil {
		t.Error("submit without key: expected error")
	} else if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("submit without key: got %v", err)
	}
	if _, err := submitTo(t, r, "s3cret", 80); err != nil {
		t.Errorf("submit with key: %v", err)
	}
}

func TestRelay_DisabledListeners(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Admin.Enabled = false
	cfg.Server.Ingress.GRPC.Enabled = false
	r := startRelay(t, cfg)

	if r.admin != nil || r.grpc != nil {
		t.Fatal("disabled listeners were started")
	}
	if got := httpGet(t, "http://"+r.http.Addr().String()+"/api/heart"); got != `{"heart_beat":null}` {
		t.Errorf("got %s", got)
	}
}

func TestNewRelay_BindConflict(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer occupied.Close()

	cfg := testConfig()
	cfg.Server.HTTPPort = occupied.Addr().(*net.TCPAddr).Port
	if _, err := newRelay(cfg, new(slog.LevelVar)); err == nil {
		t.Fatal("expected bind error, got nil")
	}
}

func TestNewRelay_OptionalListenerBindFailures(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer occupied.Close()
	port := occupied.Addr().(*net.TCPAddr).Port

	t.Run("admin", func(t *testing.T) {
		cfg := testConfig()
		cfg.Server.Admin.Port = port
		r := startRelay(t, cfg)

		if r.admin != nil || r.hub != nil {
			t.Fatal("admin listener should be skipped when its port is taken")
		}
		if r.grpc == nil {
			t.Fatal("grpc ingress should still start")
		}
		if _, err := submitTo(t, r, "", 77); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if got := httpGet(t, "http://"+r.http.Addr().String()+"/api/heart"); got != `{"heart_beat":77}` {
			t.Errorf("got %s", got)
		}
	})

	t.Run("grpc", func(t *testing.T) {
		cfg := testConfig()
		cfg.Server.Ingress.GRPC.Port = port
		r := startRelay(t, cfg)

		if r.grpc != nil || r.grpcLn != nil {
			t.Fatal("grpc ingress should be skipped when its port is taken")
		}
		if r.admin == nil {
			t.Fatal("admin listener should still start")
		}
		if got := httpGet(t, "http://"+r.http.Addr().String()+"/api/heart"); got != `{"heart_beat":null}` {
			t.Errorf("got %s", got)
		}
	})
}

func TestRelay_Reload(t *testing.T) {
	level := new(slog.LevelVar)
	cfg := testConfig()
	cfg.Server.Admin.Enabled = false
	cfg.Server.Ingress.GRPC.Enabled = false
	r, err := newRelay(cfg, level)
	if err != nil {
		t.Fatalf("newRelay: %v", err)
	}
	defer r.closeListeners()

	next := testConfig()
	next.Server.StalenessWindow = 45 * time.Second
	next.Server.LogLevel = "debug"
	r.reload(next)

	if got := r.store.Window(); got != 45*time.Second {
		t.Errorf("window: got %v, want 45s", got)
	}
	if got := level.Level(); got != slog.LevelDebug {
		t.Errorf("level: got %v, want debug", got)
	}
}
