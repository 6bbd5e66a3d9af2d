package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthhandler "github.com/pranay-th/TGBH-CheeseBurger/internal/health/handler"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/server/interceptors"
)

// GRPCDeps holds the dependencies of the gRPC services.
type GRPCDeps struct {
	// Health backs grpc.health.v1.Health. A nil checker reports SERVING unconditionally.
	Health *healthhandler.Checker
	Logger *zap.Logger
}

// NewGRPCServer returns a gRPC server with otel stats and request logging installed and every
// service registered.
func NewGRPCServer(deps GRPCDeps) *grpc.Server {
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.LoggingUnary(deps.Logger, map[string]bool{
				healthpb.Health_Check_FullMethodName: true,
			}),
		),
	)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the gRPC services with s.
//
//   - grpc.health.v1.Health → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps GRPCDeps) {
	healthpb.RegisterHealthServer(s, healthhandler.NewServer(deps.Health))
}
