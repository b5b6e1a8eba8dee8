package api

import (
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the grpc.health.v1 service name reported for the loop
const ServiceName = "reid.Pipeline"

// HealthServer serves the standard gRPC health protocol. The overall status
// and ServiceName follow the re-identification loop.
type HealthServer struct {
	port   int
	server *grpc.Server
	health *health.Server
}

func NewHealthServer(port int) *HealthServer {
	srv := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	reflection.Register(srv)

	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{port: port, server: srv, health: h}
}

// SetServing flips both the overall and the loop status
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

// Listen binds the configured port. Port 0 picks a free one.
func (h *HealthServer) Listen() (net.Listener, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", h.port))
	if err != nil {
		return nil, fmt.Errorf("listen gRPC health on %d: %w", h.port, err)
	}
	return lis, nil
}

// Serve blocks until Stop
func (h *HealthServer) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("Starting gRPC health service")
	return h.server.Serve(lis)
}

func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
