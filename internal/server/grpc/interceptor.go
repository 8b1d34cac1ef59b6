package grpc

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/dmitrijs2005/authservice/internal/common"
	"github.com/dmitrijs2005/authservice/internal/logging"
)

// correlationInterceptor puts the caller's correlation id, or a new one,
// into the context and sends it back as a header.
func (s *HealthServer) correlationInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	key := strings.ToLower(common.CorrelationIDHeaderName)

	var id string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			id = values[0]
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	ctx = logging.WithCorrelationID(ctx, id)
	_ = grpc.SetHeader(ctx, metadata.Pairs(key, id))

	s.logger.Debug(ctx, "grpc call", "method", info.FullMethod)
	return handler(ctx, req)
}
