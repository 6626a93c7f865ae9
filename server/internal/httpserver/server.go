package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/netutil"
)

// Options tunes the connection server. Zero values keep the unbounded
// behaviour.
type Options struct {
	// MaxConnections caps simultaneously open connections; 0 = unlimited.
	// Excess connections wait in the kernel backlog until a slot frees up.
	MaxConnections int

	// IdleTimeout closes keep-alive connections idle for longer; 0 = never.
	IdleTimeout time.Duration

	// ConnOpened and ConnClosed are called from the connection state hook.
	ConnOpened func()
	ConnClosed func()
}

// Listen binds a TCP listener on host:port, capped at maxConns connections
// when maxConns > 0.
func Listen(host string, port, maxConns int) (net.Listener, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("httpserver: listen %s: %w", addr, err)
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	return ln, nil
}

// Server serves one handler on one listener.
type Server struct {
	ln  net.Listener
	srv *http.Server
}

// New creates a Server for handler on ln.
func New(ln net.Listener, handler http.Handler, opts Options) *Server {
	srv := &http.Server{
		Handler:     handler,
		IdleTimeout: opts.IdleTimeout,
		ErrorLog:    slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}
	if opts.ConnOpened != nil || opts.ConnClosed != nil {
		srv.ConnState = connStateHook(opts.ConnOpened, opts.ConnClosed)
	}
	return &Server{ln: ln, srv: srv}
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until Shutdown is called. It returns nil after a
// clean shutdown.
func (s *Server) Serve() error {
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpserver: serve %s: %w", s.ln.Addr(), err)
	}
	return nil
}

// Shutdown stops accepting and waits for active requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Close drops the listener and every open connection without waiting.
func (s *Server) Close() error {
	err := s.srv.Close()
	if lerr := s.ln.Close(); lerr != nil && !errors.Is(lerr, net.ErrClosed) && err == nil {
		err = lerr
	}
	return err
}

// connStateHook maps net/http connection states onto open/close callbacks.
// Hijacked connections (WebSocket upgrades) count as closed.
func connStateHook(opened, closed func()) func(net.Conn, http.ConnState) {
	return func(_ net.Conn, state http.ConnState) {
		switch state {
		case http.StateNew:
			if opened != nil {
				opened()
			}
		case http.StateClosed, http.StateHijacked:
			if closed != nil {
				closed()
			}
		}
	}
}
