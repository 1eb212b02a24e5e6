package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/aq2208/bookstore-api/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "bookstore.v1.Bookstore"

// Check probes one dependency (database, redis, ...). Nil means healthy.
type Check func(ctx context.Context) error

// HealthServer exposes grpc.health.v1 and keeps its status in line with the
// registered dependency checks.
type HealthServer struct {
	srv      *grpc.Server
	health   *health.Server
	checks   map[string]Check
	interval time.Duration
	log      *slog.Logger
}

func NewHealthServer(interval time.Duration, checks map[string]Check) *HealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	hs := &HealthServer{
		srv:      grpc.NewServer(),
		health:   health.NewServer(),
		checks:   checks,
		interval: interval,
		log:      logging.New("grpc-health"),
	}
	healthpb.RegisterHealthServer(hs.srv, hs.health)
	reflection.Register(hs.srv)
	return hs
}

// CheckOnce runs every check and publishes the combined status.
func (h *HealthServer) CheckOnce(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range h.checks {
		cctx, cancel := context.WithTimeout(ctx, h.interval/2)
		err := check(cctx)
		cancel()
		if err != nil {
			h.log.Warn("dependency unhealthy", "check", name, "err", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	return status
}

// Serve blocks serving on lis and re-runs the checks every interval until ctx ends.
func (h *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	h.CheckOnce(ctx)
	go func() {
		t := time.NewTicker(h.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				h.health.Shutdown()
				h.srv.GracefulStop()
				return
			case <-t.C:
				h.CheckOnce(ctx)
			}
		}
	}()
	h.log.Info("grpc health server listening", "addr", lis.Addr().String())
	return h.srv.Serve(lis)
}

func (h *HealthServer) Stop() { h.srv.GracefulStop() }
