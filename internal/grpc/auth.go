package grpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const serviceTokenHeader = "x-service-token"

// serviceAuth checks the shared x-service-token carried by peer services.
type serviceAuth struct {
	token  []byte
	logger *zap.Logger
}

func newServiceAuth(expectedToken string, logger *zap.Logger) (*serviceAuth, error) {
	if expectedToken == "" {
		return nil, errors.New("service auth token required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &serviceAuth{token: []byte(expectedToken), logger: logger}, nil
}

func (a *serviceAuth) authorize(ctx context.Context, method string) error {
	token := serviceTokenFromMetadata(ctx)
	if token == "" {
		a.logger.Warn("grpc call without service token", zap.String("method", method))
		return status.Error(codes.Unauthenticated, "missing_service_token")
	}
	if subtle.ConstantTimeCompare([]byte(token), a.token) != 1 {
		a.logger.Warn("grpc call with invalid service token", zap.String("method", method))
		return status.Error(codes.PermissionDenied, "invalid_service_token")
	}
	return nil
}

func NewServiceAuthUnaryInterceptor(expectedToken string, logger *zap.Logger) (grpc.UnaryServerInterceptor, error) {
	auth, err := newServiceAuth(expectedToken, logger)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := auth.authorize(ctx, info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}, nil
}

// NewServiceAuthStreamInterceptor guards streaming calls such as Health/Watch.
func NewServiceAuthStreamInterceptor(expectedToken string, logger *zap.Logger) (grpc.StreamServerInterceptor, error) {
	auth, err := newServiceAuth(expectedToken, logger)
	if err != nil {
		return nil, err
	}
	return func(srv interface{}, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := auth.authorize(stream.Context(), info.FullMethod); err != nil {
			return err
		}
		return handler(srv, stream)
	}, nil
}

func serviceTokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(serviceTokenHeader)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
