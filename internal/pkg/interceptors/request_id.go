// Package interceptors holds the gRPC server interceptors of the ops endpoint.
package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/jcmexdev/bakery-storefront/internal/pkg/interceptors/constants"
)

// UnaryServerInterceptor copies x-request-id from the incoming metadata into
// the context, minting one when absent, and logs the call outcome.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		requestID := GetMetadataValue(ctx, constants.HeaderXRequestId)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = constants.WithRequestID(ctx, requestID)
		if key := GetMetadataValue(ctx, constants.HeaderXIdempotencyKey); key != "" {
			ctx = constants.WithIdempotencyKey(ctx, key)
		}

		start := time.Now()
		resp, err := handler(ctx, req)
		slog.DebugContext(ctx, "grpc call",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start))
		return resp, err
	}
}

// GetMetadataValue looks key up in the incoming metadata.
func GetMetadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}
	return ""
}
