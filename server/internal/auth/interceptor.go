package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ModeAPIKey enables key checking.
const ModeAPIKey = "apikey"

// APIKeyInterceptor returns a UnaryServerInterceptor enforcing key on header.
// header must be lowercase; gRPC normalises metadata keys to lowercase.
func APIKeyInterceptor(mode, header, key string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if mode != ModeAPIKey || key == "" {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		for _, v := range md.Get(header) {
			if subtle.ConstantTimeCompare([]byte(v), []byte(key)) == 1 {
				return handler(ctx, req)
			}
		}

		slog.Warn("auth: rejected producer call", "method", info.FullMethod, "header", header)
		return nil, status.Error(codes.Unauthenticated, "invalid api key")
	}
}
