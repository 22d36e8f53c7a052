// Package grpc runs the internal gRPC endpoint: the standard health service,
// open to probes, and server reflection, restricted to admins.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/docchat/internal/logging"
	"github.com/dmitrijs2005/docchat/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type GRPCServer struct {
	address string
	gate    *auth.Gate
	health  *health.Server
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, gate *auth.Gate) *GRPCServer {
	return &GRPCServer{
		address: a,
		gate:    gate,
		health:  health.NewServer(),
		logger:  l.With("module", "grpc_server"),
	}
}

// SetServing reports the overall health status to probes.
func (s *GRPCServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.authUnaryInterceptor),
		grpc.ChainStreamInterceptor(s.authStreamInterceptor),
	)

	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)
	s.SetServing(true)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
