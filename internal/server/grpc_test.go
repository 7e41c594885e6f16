package server

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type togglePinger struct{ down atomic.Bool }

func (p *togglePinger) PingContext(context.Context) error {
	if p.down.Load() {
		return errors.New("db down")
	}
	return nil
}

func dialHealth(t *testing.T, s *grpc.Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func waitForStatus(t *testing.T, client healthpb.HealthClient, service string, want healthpb.HealthCheckResponse_ServingStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		if err == nil && resp.GetStatus() == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("status for %q: got %v (err %v), want %v", service, resp.GetStatus(), err, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealthProbe_FollowsDatabase(t *testing.T) {
	s, hs := NewGRPCServer()
	client := dialHealth(t, s)

	pinger := &togglePinger{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunHealthProbe(ctx, hs, Deps{Pinger: pinger, ProbeInterval: 20 * time.Millisecond, Logger: zerolog.Nop()})
		close(done)
	}()

	waitForStatus(t, client, "", healthpb.HealthCheckResponse_SERVING)
	waitForStatus(t, client, ServiceName, healthpb.HealthCheckResponse_SERVING)

	pinger.down.Store(true)
	waitForStatus(t, client, "", healthpb.HealthCheckResponse_NOT_SERVING)

	pinger.down.Store(false)
	waitForStatus(t, client, "", healthpb.HealthCheckResponse_SERVING)

	cancel()
	<-done
	waitForStatus(t, client, "", healthpb.HealthCheckResponse_NOT_SERVING)
}

func TestHealthProbe_NoPingerIsServing(t *testing.T) {
	if got := probeStatus(context.Background(), nil); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("probeStatus(nil) = %v, want SERVING", got)
	}
}
