package grpcapi

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-lottery-service/internal/delivery/grpcapi/basketv1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// NewServer builds the gRPC server. The basket service is registered only
// when basket is not nil; health is always served.
func NewServer(basket basketv1.BasketServiceServer, logger *zap.Logger) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	if basket != nil {
		basketv1.RegisterBasketServiceServer(srv, basket)
		healthSrv.SetServingStatus(basketv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	}
	return srv, healthSrv
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		started := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(started)),
		}
		if err != nil {
			logger.Warn("grpc request failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("grpc request", fields...)
		}
		return resp, err
	}
}
