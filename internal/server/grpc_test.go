package server

import (
	"context"
	"testing"

	sessiondomain "account-platform/backend/internal/session/domain"
)

type mockTokenResolver struct{}

func (mockTokenResolver) ResolveByToken(ctx context.Context, token string) (*sessiondomain.Session, error) {
	return nil, nil
}

func TestNewGRPCServer_RegistersHealthAndReflection(t *testing.T) {
	s, hs := NewGRPCServer(Deps{})
	defer s.Stop()

	if hs == nil {
		t.Fatal("health server should not be nil")
	}
	info := s.GetServiceInfo()
	if _, ok := info["grpc.health.v1.Health"]; !ok {
		t.Error("health service should be registered")
	}
	found := false
	for name := range info {
		if name == "grpc.reflection.v1.ServerReflection" || name == "grpc.reflection.v1alpha.ServerReflection" {
			found = true
		}
	}
	if !found {
		t.Error("reflection service should be registered")
	}
}

func TestNewGRPCServer_WithDeps(t *testing.T) {
	// A full interceptor chain must still construct cleanly.
	resolver := &mockTokenResolver{}
	s, _ := NewGRPCServer(Deps{TokenResolver: resolver})
	defer s.Stop()

	if s == nil {
		t.Fatal("server should not be nil")
	}
}
