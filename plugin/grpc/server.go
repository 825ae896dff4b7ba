package grpc

import (
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// MaxPortAttempts bounds how many incrementing ports ServeHealth tries
// before giving up, matching the requested port possibly already being
// taken by another extension process on the same host.
const MaxPortAttempts = 64

// ServeHealth is the supervision-side contract an extension process binary
// embeds: bind a listener starting at requestedPort (retrying upward on
// collision), announce the actual port on stdout so Manager.Launch can
// discover it, and serve the standard gRPC health service until stopped.
// It blocks until the listener or server fails.
func ServeHealth(requestedPort int, log *zap.SugaredLogger) error {
	var lis net.Listener
	var err error
	port := requestedPort

	for attempt := 0; attempt < MaxPortAttempts; attempt++ {
		lis, err = net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			break
		}
		port++
	}
	if err != nil {
		return fmt.Errorf("failed to bind extension listener after %d attempts: %w", MaxPortAttempts, err)
	}

	fmt.Printf("%s%d\n", PortEnvAnnouncement, port)

	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	log.Infow("extension health service listening", "addr", lis.Addr().String())
	return srv.Serve(lis)
}
