package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/anonchat/internal/config"
)

// GRPCServer wraps grpc.Server with the health service and reflection.
type GRPCServer struct {
	srv    *grpc.Server
	health *health.Server
	log    *slog.Logger
}

// NewGRPCServer builds a gRPC server and registers all provided services.
// Every registrar that implements Named is reported SERVING on the health
// service.
func NewGRPCServer(log *slog.Logger, registrars ...Registrar) *GRPCServer {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
		if n, ok := r.(Named); ok {
			healthServer.SetServingStatus(n.Name(), healthpb.HealthCheckResponse_SERVING)
		}
	}
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return &GRPCServer{srv: grpcServer, health: healthServer, log: log}
}

// Serve accepts connections on lis until ctx is cancelled, then drains
// in-flight calls.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.srv.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case err := <-serveErr:
		return err
	}
}

// StartGRPCServer listens on the configured address and serves until ctx is
// cancelled.
func StartGRPCServer(ctx context.Context, cfg *config.Config, log *slog.Logger, registrars ...Registrar) error {
	addr := fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	log.Info("starting gRPC server", "addr", addr)
	return NewGRPCServer(log, registrars...).Serve(ctx, lis)
}
