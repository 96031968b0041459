package server

import (
	"context"
	"fmt"
	"net"

	"github.com/charmbracelet/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the name reported by the gRPC health server alongside
// the empty overall service.
const HealthService = "salesdesk.Engine"

// Health serves grpc.health.v1.Health.
type Health struct {
	grpcServer   *grpc.Server
	healthServer *health.Server
	listener     net.Listener
	log          *log.Logger
}

// NewHealth listens on addr and registers the health service. Status is
// SERVING until Serve returns.
func NewHealth(addr string) (*Health, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Health{
		grpcServer:   grpcServer,
		healthServer: healthServer,
		listener:     lis,
		log:          log.Default().WithPrefix("grpc"),
	}, nil
}

// Addr returns the listening address.
func (h *Health) Addr() net.Addr {
	return h.listener.Addr()
}

// Serve blocks until ctx is cancelled or the server fails.
func (h *Health) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		h.log.Info("grpc health listening", "addr", h.listener.Addr().String())
		if err := h.grpcServer.Serve(h.listener); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		h.healthServer.Shutdown()
		h.grpcServer.GracefulStop()
		return nil
	}
}
