package grpc

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health key reported for the roster service; the empty
// name tracks the process as a whole.
const ServiceName = "semaphore.roster"

// NewServer builds the gRPC server exposing grpc.health.v1.Health. Every
// service starts NOT_SERVING until the storage check flips it. When
// serviceToken is empty the interceptors are left off.
func NewServer(serviceToken string, logger *zap.Logger) (*grpc.Server, *health.Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []grpc.ServerOption
	if serviceToken != "" {
		unary, err := NewServiceAuthUnaryInterceptor(serviceToken, logger)
		if err != nil {
			return nil, nil, err
		}
		stream, err := NewServiceAuthStreamInterceptor(serviceToken, logger)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, grpc.UnaryInterceptor(unary), grpc.StreamInterceptor(stream))
	} else {
		logger.Warn("grpc service token not set; health endpoint is unauthenticated")
	}

	server := grpc.NewServer(opts...)
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	return server, healthServer, nil
}
