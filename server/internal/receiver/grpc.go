package receiver

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/heartrelay/heartrelay/pkg/relayrpc"
)

// Receiver implements relayrpc.IngressServer on top of an Ingress.
type Receiver struct {
	ingress *Ingress
}

// New creates a Receiver forwarding to in.
func New(in *Ingress) *Receiver {
	return &Receiver{ingress: in}
}

// Submit is the unary RPC called by producers.
func (r *Receiver) Submit(_ context.Context, req *relayrpc.SubmitRequest) (*relayrpc.SubmitResponse, error) {
	if err := r.ingress.Submit(int(req.HeartRate)); err != nil {
		slog.Warn("receiver: reading rejected", "heart_rate", req.HeartRate, "err", err)
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	slog.Debug("receiver: reading stored", "heart_rate", req.HeartRate)
	return &relayrpc.SubmitResponse{Ok: true, Message: "heart beat updated"}, nil
}
