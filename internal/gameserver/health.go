package gameserver

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// WorldServiceName is the health service name reported for the running world.
const WorldServiceName = "skirmish.World"

// HealthService serves the standard gRPC health protocol.
type HealthService struct {
	addr   string
	logger *zap.Logger
	grpc   *grpc.Server
	health *health.Server

	mu    sync.Mutex
	lis   net.Listener
	ready chan struct{}
}

// NewHealthService creates a stopped health endpoint for addr.
func NewHealthService(addr string, logger *zap.Logger) *HealthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &HealthService{
		addr:   addr,
		logger: logger,
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		ready:  make(chan struct{}),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s
}

// Start listens and serves until Stop.
//
// Postcondition: Both the overall status and WorldServiceName report SERVING
// once the listener is bound.
func (s *HealthService) Start(_ context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()
	s.SetServing(true)
	close(s.ready)
	s.logger.Info("health endpoint listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains open calls.
func (s *HealthService) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// SetServing flips the status of the world service and the server as a whole.
func (s *HealthService) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(WorldServiceName, status)
}

// Ready is closed once the listener is bound.
func (s *HealthService) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound address, or nil before Start binds.
func (s *HealthService) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}
