package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/docchat/internal/logging"
	"github.com/dmitrijs2005/docchat/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newTestServer(t *testing.T) (*GRPCServer, *auth.TokenService) {
	t.Helper()
	tokens, err := auth.NewTokenService([]byte("grpc-secret"))
	if err != nil {
		t.Fatalf("NewTokenService error: %v", err)
	}
	gate := auth.NewGate(tokens, logging.Nop())
	return NewGRPCServer("127.0.0.1:0", logging.Nop(), gate), tokens
}

func withToken(t *testing.T, tokens *auth.TokenService, role auth.Role) context.Context {
	t.Helper()
	tok, err := tokens.Issue(auth.Identity{UserID: "u1", Email: "u1@example.com", Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	md := metadata.Pairs("authorization", "Bearer "+tok)
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestUnaryInterceptor_HealthIsPublic(t *testing.T) {
	s, _ := newTestServer(t)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	called := false
	resp, err := s.authUnaryInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called || resp != "ok" {
		t.Fatalf("handler not called or bad resp: %v %v", called, resp)
	}
}

func TestUnaryInterceptor_Denied(t *testing.T) {
	s, tokens := newTestServer(t)
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Admin/Do"}
	mustNotRun := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler must not be called")
		return nil, nil
	}

	tests := []struct {
		name string
		ctx  context.Context
		code codes.Code
	}{
		{"no metadata", context.Background(), codes.Unauthenticated},
		{"not bearer", metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Token abc")), codes.Unauthenticated},
		{"garbage token", metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer abc")), codes.Unauthenticated},
		{"user role", withToken(t, tokens, auth.RoleUser), codes.PermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.authUnaryInterceptor(tt.ctx, nil, info, mustNotRun)
			if status.Code(err) != tt.code {
				t.Fatalf("expected %v, got %v (%v)", tt.code, status.Code(err), err)
			}
		})
	}
}

func TestUnaryInterceptor_AdminGetsClaims(t *testing.T) {
	s, tokens := newTestServer(t)
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Admin/Do"}

	resp, err := s.authUnaryInterceptor(withToken(t, tokens, auth.RoleAdmin), nil, info, func(ctx context.Context, req any) (any, error) {
		claims, ok := auth.ClaimsFromContext(ctx)
		if !ok || claims.Role != auth.RoleAdmin {
			t.Fatalf("claims not attached: %v %v", ok, claims)
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "done" {
		t.Fatalf("unexpected resp: %v", resp)
	}
}

func TestUnaryInterceptor_HandlerErrorPassesThrough(t *testing.T) {
	s, tokens := newTestServer(t)
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Admin/Do"}
	want := status.Error(codes.InvalidArgument, "bad")

	_, err := s.authUnaryInterceptor(withToken(t, tokens, auth.RoleAdmin), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected handler error, got %v", err)
	}
}

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func TestStreamInterceptor(t *testing.T) {
	s, tokens := newTestServer(t)
	info := &grpc.StreamServerInfo{FullMethod: "/grpc.reflection.v1.ServerReflection/ServerReflectionInfo"}

	err := s.authStreamInterceptor(nil, &fakeStream{ctx: withToken(t, tokens, auth.RoleUser)}, info, func(any, grpc.ServerStream) error {
		t.Fatal("handler must not be called")
		return nil
	})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}

	var seen *auth.Claims
	err = s.authStreamInterceptor(nil, &fakeStream{ctx: withToken(t, tokens, auth.RoleAdmin)}, info, func(_ any, ss grpc.ServerStream) error {
		seen, _ = auth.ClaimsFromContext(ss.Context())
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == nil || seen.UserID != "u1" {
		t.Fatalf("stream context has no claims: %v", seen)
	}

	healthInfo := &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch"}
	called := false
	err = s.authStreamInterceptor(nil, &fakeStream{ctx: context.Background()}, healthInfo, func(any, grpc.ServerStream) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("health watch should be public: %v %v", err, called)
	}
}
