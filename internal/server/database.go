package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ScanServiceName is the health service name the daemon reports under.
const ScanServiceName = "petscan.Scanner"

// Pinger is satisfied by repository.DB.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration, logger *slog.Logger) error
}

// NewGRPCServer builds a gRPC server exposing the standard health service
// and reflection.
func NewGRPCServer(opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)
	return gs, hs
}

// HealthStatusSetter is the part of health.Server the reporter drives.
type HealthStatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// ReportDBHealth pings the database every interval and mirrors the result
// into the health service until ctx is done. The first ping runs right away.
func ReportDBHealth(ctx context.Context, db Pinger, hs HealthStatusSetter, interval, timeout time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	last := healthpb.HealthCheckResponse_UNKNOWN
	check := func() {
		st := healthpb.HealthCheckResponse_SERVING
		if err := db.HealthCheck(ctx, timeout, logger); err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		if st != last {
			logger.Info("health status changed", "service", ScanServiceName, "status", st.String())
			last = st
		}
		hs.SetServingStatus("", st)
		hs.SetServingStatus(ScanServiceName, st)
	}

	check()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			check()
		}
	}
}
