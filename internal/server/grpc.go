// Package server assembles the gRPC health endpoint; the HTTP surface lives in httpapi.
package server

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "creator.access.v1.AccessGate"

// DefaultProbeInterval is how often the readiness probe pings the database.
const DefaultProbeInterval = 10 * time.Second

// Pinger is used for readiness (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds optional dependencies for the gRPC server.
type Deps struct {
	// Pinger is checked by the readiness probe. If nil, the server always reports SERVING.
	Pinger Pinger
	// ProbeInterval defaults to DefaultProbeInterval.
	ProbeInterval time.Duration
	Logger        zerolog.Logger
}

// NewGRPCServer returns a gRPC server with the standard health service registered and OTel
// stats instrumentation. Call RunHealthProbe to keep the status in line with the database.
func NewGRPCServer(opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}

// RunHealthProbe sets the serving status immediately and then every interval until ctx is done,
// at which point every service is marked NOT_SERVING.
func RunHealthProbe(ctx context.Context, hs *health.Server, deps Deps) {
	interval := deps.ProbeInterval
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	last := healthpb.HealthCheckResponse_UNKNOWN
	probe := func() {
		st := probeStatus(ctx, deps.Pinger)
		if st != last {
			deps.Logger.Info().Str("status", st.String()).Msg("grpc health: status changed")
			last = st
		}
		hs.SetServingStatus("", st)
		hs.SetServingStatus(ServiceName, st)
	}

	probe()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			probe()
		}
	}
}

func probeStatus(ctx context.Context, p Pinger) healthpb.HealthCheckResponse_ServingStatus {
	if p == nil {
		return healthpb.HealthCheckResponse_SERVING
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.PingContext(pingCtx); err != nil {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}
