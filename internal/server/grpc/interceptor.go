package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/dmitrijs2005/docchat/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// publicServicePrefix is the only service callable without a token.
const publicServicePrefix = "/grpc.health.v1.Health/"

func isPublic(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, publicServicePrefix)
}

func tokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AuthorizationMetadataKey)
	if len(values) == 0 {
		return ""
	}
	token, _ := auth.ParseBearer(values[0])
	return token
}

// gateStatus converts gate refusals to gRPC codes; other errors come from
// the handler and pass through.
func gateStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, "admin access required")
	default:
		return err
	}
}

func (s *GRPCServer) authUnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if isPublic(info.FullMethod) {
		return handler(ctx, req)
	}

	var resp any
	err := s.gate.RequireRole(auth.RoleAdmin, func(ctx context.Context) error {
		var err error
		resp, err = handler(ctx, req)
		return err
	})(ctx, tokenFromMetadata(ctx))

	return resp, gateStatus(err)
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authedStream) Context() context.Context { return s.ctx }

func (s *GRPCServer) authStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if isPublic(info.FullMethod) {
		return handler(srv, ss)
	}

	ctx := ss.Context()
	err := s.gate.RequireRole(auth.RoleAdmin, func(ctx context.Context) error {
		return handler(srv, &authedStream{ServerStream: ss, ctx: ctx})
	})(ctx, tokenFromMetadata(ctx))

	return gateStatus(err)
}
