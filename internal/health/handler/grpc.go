// Package handler reports service readiness over gRPC (grpc.health.v1) and HTTP.
package handler

import (
	"context"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger checks connectivity to a dependency (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// pingTimeout bounds a single readiness probe.
const pingTimeout = 2 * time.Second

// Checker probes the service's dependencies.
type Checker struct {
	pinger Pinger
}

// NewChecker returns a Checker. A nil pinger means there is nothing to probe and the service is
// always ready.
func NewChecker(pinger Pinger) *Checker {
	return &Checker{pinger: pinger}
}

// Check returns nil when every dependency answers within pingTimeout.
func (c *Checker) Check(ctx context.Context) error {
	if c == nil || c.pinger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.pinger.PingContext(ctx)
}

// Server implements grpc.health.v1.Health for readiness/liveness probes. Only unary Check is
// served; Watch and List answer Unimplemented.
type Server struct {
	healthpb.UnimplementedHealthServer
	checker *Checker
}

// NewServer returns a new Health gRPC server backed by checker.
func NewServer(checker *Checker) *Server {
	return &Server{checker: checker}
}

// Check reports SERVING when the dependencies are reachable and NOT_SERVING otherwise. Probe
// failures are a status, not an RPC error.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.checker.Check(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	return &healthpb.HealthCheckResponse{Status: status}, nil
}
