package grpc

import (
	"fmt"
	"net"

	"github.com/example/bistro/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Service names reported by the health server besides the overall "".
const (
	ServiceStorefront = "storefront"
	ServiceAdmin      = "admin"
	ServiceRemote     = "remote-store"
)

// HealthServer exposes the standard gRPC health protocol for the surfaces
// and the remote store.
type HealthServer struct {
	cfg    *config.ServerConfig
	health *health.Server
	srv    *grpc.Server
	logger *zap.Logger
}

func NewHealthServer(cfg *config.ServerConfig, logger *zap.Logger) *HealthServer {
	h := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	reflection.Register(srv)

	for _, name := range []string{ServiceStorefront, ServiceAdmin, ServiceRemote} {
		h.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}

	return &HealthServer{
		cfg:    cfg,
		health: h,
		srv:    srv,
		logger: logger.Named("health"),
	}
}

func (s *HealthServer) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

// Start listens on the configured gRPC port and serves until Stop.
func (s *HealthServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.GRPCPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.logger.Info("Health service started", zap.String("address", addr))
	return s.Serve(lis)
}

func (s *HealthServer) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
