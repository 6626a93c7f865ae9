package shipper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/heartrelay/heartrelay/agent/internal/compute"
	"github.com/heartrelay/heartrelay/agent/internal/config"
	"github.com/heartrelay/heartrelay/pkg/relayrpc"
)

const (
	backoffInitial    = 500 * time.Millisecond
	backoffMax        = 30 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 5 * time.Second

	// maxReadingAge drops buffered readings the relay would present as
	// current long after they were taken.
	maxReadingAge = 10 * time.Second
)

// Shipper buffers filtered readings and submits them to the relay's gRPC
// ingress. Ship() is non-blocking; when the buffer is full the oldest
// reading is evicted. Run() drains the buffer and handles reconnection.
type Shipper struct {
	cfg    config.AgentConfig
	buf    chan *compute.Result
	dialFn dialFunc // injectable for tests
	now    func() time.Time
}

// dialFunc opens the connection to the relay. Tests inject a loopback dialer.
type dialFunc func(ctx context.Context, endpoint string) (*grpc.ClientConn, error)

// New creates a Shipper using the given agent config.
func New(cfg config.AgentConfig) *Shipper {
	return &Shipper{
		cfg:    cfg,
		buf:    make(chan *compute.Result, cfg.BufferSize),
		dialFn: defaultDial,
		now:    time.Now,
	}
}

// Ship enqueues res. If the buffer is full the oldest entry is evicted.
func (s *Shipper) Ship(res *compute.Result) {
	select {
	case s.buf <- res:
	default:
		select {
		case <-s.buf:
			slog.Debug("shipper: buffer full, evicted oldest reading",
				"source", res.SourceID, "buffer_cap", cap(s.buf))
		default:
		}
		// Another Ship may have refilled the slot; drop rather than block.
		select {
		case s.buf <- res:
		default:
		}
	}
}

// Run drains the buffer, sending readings to the relay. It reconnects with
// exponential backoff when the connection is lost and blocks until ctx is
// cancelled.
func (s *Shipper) Run(ctx context.Context) {
	bo := newBackoff()
	var retry *compute.Result

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dialFn(ctx, s.cfg.ServerEndpoint)
		if err != nil {
			wait := bo.next()
			slog.Error("shipper: dial failed, will retry",
				"endpoint", s.cfg.ServerEndpoint, "err", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
				continue
			}
		}

		slog.Info("shipper: connected", "endpoint", s.cfg.ServerEndpoint)
		bo.reset()

		retry, err = s.drain(ctx, conn, retry)
		conn.Close()

		if ctx.Err() != nil {
			return
		}

		wait := bo.next()
		slog.Warn("shipper: connection lost, will reconnect",
			"endpoint", s.cfg.ServerEndpoint, "err", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// drain sends buffered readings until a transient error or ctx is cancelled.
// A reading that failed transiently comes back as retry and is sent first on
// the next connection, unless a newer reading has been buffered since.
func (s *Shipper) drain(ctx context.Context, conn grpc.ClientConnInterface, retry *compute.Result) (*compute.Result, error) {
	client := relayrpc.NewIngressClient(conn)

	for {
		var res *compute.Result
		switch {
		case retry != nil && len(s.buf) == 0:
			res, retry = retry, nil
		default:
			if retry != nil {
				slog.Debug("shipper: dropping failed reading, newer one buffered",
					"source", retry.SourceID, "bpm", retry.BPM)
				retry = nil
			}
			select {
			case <-ctx.Done():
				return nil, nil
			case res = <-s.buf:
			}
		}

		if age := s.now().Sub(res.At); age > maxReadingAge {
			slog.Debug("shipper: discarding old reading", "source", res.SourceID, "age", age)
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		if s.cfg.ServerAuth.Mode == "apikey" {
			sendCtx = metadata.AppendToOutgoingContext(sendCtx,
				s.cfg.ServerAuth.Header, s.cfg.ServerAuth.Key())
		}
		resp, err := client.Submit(sendCtx, toRequest(res))
		cancel()

		if err != nil {
			if isPermanentError(err) {
				slog.Error("shipper: permanent send error, discarding reading",
					"source", res.SourceID, "bpm", res.BPM, "err", err)
				continue
			}
			return res, fmt.Errorf("submit: %w", err)
		}

		if !resp.Ok {
			slog.Warn("shipper: relay rejected reading",
				"source", res.SourceID, "message", resp.Message)
		} else {
			slog.Debug("shipper: reading delivered", "source", res.SourceID, "bpm", res.BPM)
		}
	}
}

// isPermanentError reports whether retrying err cannot succeed.
func isPermanentError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied, codes.Unimplemented:
		return true
	}
	return false
}

func defaultDial(ctx context.Context, endpoint string) (*grpc.ClientConn, error) {
	return grpc.DialContext(ctx, endpoint, //nolint:staticcheck
		grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// ±25% jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
