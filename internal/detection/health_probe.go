package detection

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// healthProbe checks the landmark service over the standard gRPC health
// protocol. The inference endpoints stay on HTTP; only liveness uses gRPC.
type healthProbe struct {
	conn   *grpc.ClientConn
	client grpc_health_v1.HealthClient
}

func newHealthProbe(addr string) (*healthProbe, error) {
	// Keepalive catches dead connections quickly.
	kacp := keepalive.ClientParameters{
		Time:                10 * time.Second,
		Timeout:             5 * time.Second,
		PermitWithoutStream: true,
	}

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	return &healthProbe{
		conn:   conn,
		client: grpc_health_v1.NewHealthClient(conn),
	}, nil
}

func (p *healthProbe) check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := p.client.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("gRPC health check failed: %w", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("service not serving (status: %s)", resp.GetStatus())
	}
	return nil
}

func (p *healthProbe) close() error {
	return p.conn.Close()
}
