package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/heartrelay/heartrelay/pkg/relayrpc"
	"github.com/heartrelay/heartrelay/server/internal/alerts"
	"github.com/heartrelay/heartrelay/server/internal/api"
	"github.com/heartrelay/heartrelay/server/internal/auth"
	"github.com/heartrelay/heartrelay/server/internal/config"
	"github.com/heartrelay/heartrelay/server/internal/httpserver"
	"github.com/heartrelay/heartrelay/server/internal/metrics"
	"github.com/heartrelay/heartrelay/server/internal/receiver"
	"github.com/heartrelay/heartrelay/server/internal/store"
	"github.com/heartrelay/heartrelay/server/internal/ws"
)

const (
	shutdownTimeout = 10 * time.Second

	redisRetryMin = time.Second
	redisRetryMax = 30 * time.Second
)

// relay owns every listener and the shared reading store.
type relay struct {
	cfg   config.ServerConfig
	level *slog.LevelVar

	store   *store.Store
	metrics *metrics.Collector
	alerts  *alerts.Engine
	ingress *receiver.Ingress

	http  *httpserver.Server
	admin *httpserver.Server
	hub   *ws.Hub

	grpc   *grpc.Server
	grpcLn net.Listener

	redis *redis.Client
}

// newRelay builds the components and binds every enabled listener. Only the
// relay listener is required: if the admin or gRPC port cannot be bound the
// error is logged and the relay runs without that listener.
func newRelay(cfg *config.Config, level *slog.LevelVar) (*relay, error) {
	s := cfg.Server
	r := &relay{cfg: s, level: level}

	r.store = store.New(s.StalenessWindow)
	r.metrics = metrics.New(r.store)
	r.alerts = alerts.New(s.Alerts)
	r.ingress = receiver.NewIngress(r.store, r.alerts, r.metrics)

	ln, err := httpserver.Listen(s.ListenHost, s.HTTPPort, s.MaxConnections)
	if err != nil {
		return nil, err
	}
	r.http = httpserver.New(ln, api.Wrap(api.New(r.store, r.metrics)), httpserver.Options{
		MaxConnections: s.MaxConnections,
		IdleTimeout:    s.IdleTimeout,
		ConnOpened:     r.metrics.ConnOpened,
		ConnClosed:     r.metrics.ConnClosed,
	})
	slog.Info("relay listening", "addr", r.http.Addr().String())

	if s.Admin.Enabled {
		if err := r.bindAdmin(); err != nil {
			slog.Error("admin listener disabled", "err", err)
		}
	}

	if s.Ingress.GRPC.Enabled {
		if err := r.bindGRPC(); err != nil {
			slog.Error("grpc ingress disabled", "err", err)
		}
	}

	if s.Ingress.Redis.Enabled {
		rc := s.Ingress.Redis
		r.redis = redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password(),
			DB:       rc.DB,
		})
	}

	return r, nil
}

// bindAdmin serves /metrics, /ws/heart and /alerts on the admin port.
func (r *relay) bindAdmin() error {
	s := r.cfg
	ln, err := httpserver.Listen(s.ListenHost, s.Admin.Port, 0)
	if err != nil {
		return err
	}
	r.hub = ws.New(r.store, s.Admin.BroadcastInterval, r.metrics)


	mux := http.NewServeMux()
	mux.Handle("/metrics", r.metrics.Handler())
	mux.Handle("/ws/heart", r.hub)
	mux.Handle("/alerts", r.alerts)
	r.admin = httpserver.New(ln, mux, httpserver.Options{})
	slog.Info("admin listening", "addr", r.admin.Addr().String())
	return nil
}

func (r *relay) bindGRPC() error {
	g := r.cfg.Ingress.GRPC
	addr := net.JoinHostPort(r.cfg.ListenHost, strconv.Itoa(g.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc ingress: listen %s: %w", addr, err)
	}
	a := g.Auth
	r.grpc = grpc.NewServer(grpc.UnaryInterceptor(
		auth.APIKeyInterceptor(a.Mode, a.EffectiveHeader(), a.Key()),
	))
	relayrpc.RegisterIngressServer(r.grpc, receiver.New(r.ingress))
	r.grpcLn = ln
	slog.Info("grpc ingress listening", "addr", ln.Addr().String(), "auth_mode", a.Mode)
	return nil
}

// run serves until ctx is cancelled or a listener fails, then shuts
// everything down.
func (r *relay) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)

	go func() { errCh <- r.http.Serve() }()
	if r.admin != nil {
		go r.hub.Run(ctx)
		go func() { errCh <- r.admin.Serve() }()
	}
	if r.grpc != nil {
		go func() {
			if err := r.grpc.Serve(r.grpcLn); err != nil {
				errCh <- fmt.Errorf("grpc ingress: %w", err)
				return
			}
			errCh <- nil
		}()
	}
	if r.redis != nil {
		go r.subscribeRedis(ctx)
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("heartrelay shutting down")
	case err := <-errCh:
		// A listener returned before shutdown was requested.
		if err == nil {
			err = errors.New("listener stopped unexpectedly")
		}
		runErr = err
		slog.Error("listener failed, shutting down", "err", err)
	}

	cancel()
	r.shutdown()
	return runErr
}

// reload applies the hot-reloadable settings of a changed config file.
func (r *relay) reload(cfg *config.Config) {
	s := cfg.Server
	if s.StalenessWindow != r.store.Window() {
		r.store.SetWindow(s.StalenessWindow)
		slog.Info("staleness window updated", "window", s.StalenessWindow.String())
	}
	if lvl := s.SlogLevel(); lvl != r.level.Level() {
		r.level.Set(lvl)
		slog.Info("log level updated", "level", lvl.String())
	}
}

// subscribeRedis keeps the Redis subscription alive, retrying with
// exponential backoff until ctx is cancelled.
func (r *relay) subscribeRedis(ctx context.Context) {
	channel := r.cfg.Ingress.Redis.Channel
	wait := redisRetryMin
	for {
		start := time.Now()
		err := receiver.SubscribeRedis(ctx, r.redis, channel, r.ingress)
		if ctx.Err() != nil {
			return
		}
		if time.Since(start) > redisRetryMax {
			wait = redisRetryMin
		}
		slog.Warn("redis ingress disconnected, retrying",
			"channel", channel, "err", err, "retry_in", wait.String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if wait *= 2; wait > redisRetryMax {
			wait = redisRetryMax
		}
	}
}

func (r *relay) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := r.http.Shutdown(ctx); err != nil {
		slog.Warn("relay shutdown", "err", err)
	}
	if r.admin != nil {
		if err := r.admin.Shutdown(ctx); err != nil {
			slog.Warn("admin shutdown", "err", err)
		}
	}
	if r.grpc != nil {
		stopped := make(chan struct{})
		go func() {
			r.grpc.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			r.grpc.Stop()
		}
	}
	if r.redis != nil {
		r.redis.Close() //nolint:errcheck
	}
}
