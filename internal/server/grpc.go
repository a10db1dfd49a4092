// Package server wires the gRPC server: interceptor chain, health service,
// and reflection.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	auditrepo "account-platform/backend/internal/audit/repository"
	"account-platform/backend/internal/server/interceptors"
	"account-platform/backend/internal/telemetry"
)

// healthMethods are exempt from auth, audit, and telemetry.
var healthMethods = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
	"/grpc.health.v1.Health/List":  true,
}

// Deps holds optional dependencies for the gRPC server interceptor chain.
type Deps struct {
	// TokenResolver resolves Bearer tokens to sessions. If nil, no auth
	// interceptor is installed and every RPC is public.
	TokenResolver interceptors.TokenResolver
	// AuditRepo records audit log entries for authenticated RPCs. If nil, no
	// RPCs are audited.
	AuditRepo auditrepo.Repository
	// Emitter emits a telemetry event per RPC. If nil, no events are emitted.
	Emitter telemetry.EventEmitter
}

// NewGRPCServer returns a gRPC server with the interceptor chain, OTel stats
// handler, health service, and reflection registered. The returned health
// server starts in SERVING state; callers flip it during shutdown.
func NewGRPCServer(deps Deps) (*grpc.Server, *health.Server) {
	var chain []grpc.UnaryServerInterceptor
	if deps.TokenResolver != nil {
		chain = append(chain, interceptors.AuthUnary(deps.TokenResolver, healthMethods))
	}
	if deps.AuditRepo != nil {
		chain = append(chain, interceptors.AuditUnary(deps.AuditRepo, healthMethods))
	}
	if deps.Emitter != nil {
		chain = append(chain, interceptors.TelemetryUnary(deps.Emitter, healthMethods))
	}

	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	}
	if len(chain) > 0 {
		opts = append(opts, grpc.ChainUnaryInterceptor(chain...))
	}

	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)
	return s, hs
}
