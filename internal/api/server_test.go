package api

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"hotelbook/internal/config"
	"hotelbook/internal/models"
)

func newBufconnClient(t *testing.T, cfg config.APIConfig) (*testEnv, *grpc.ClientConn) {
	t.Helper()
	env := newTestEnv(t)

	srv, err := newGRPCServer(cfg, env.svc, nopLogger())
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv.listener = lis
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return env, conn
}

func invoke(t *testing.T, ctx context.Context, conn *grpc.ClientConn, method string, req map[string]any) (*structpb.Struct, error) {
	t.Helper()
	in, err := structpb.NewStruct(req)
	require.NoError(t, err)
	out := new(structpb.Struct)
	err = conn.Invoke(ctx, method, in, out)
	return out, err
}

func TestGRPC_CheckAvailability(t *testing.T) {
	env, conn := newBufconnClient(t, config.APIConfig{})
	ctx := context.Background()

	_, err := env.svc.Reservations.CreateReservation(ctx, models.BookingRequest{
		ResourceID: "room-101", Start: futureDay(3), End: futureDay(5), PartySize: 2,
	}, "u-1", "Ann")
	require.NoError(t, err)

	out, err := invoke(t, ctx, conn, methodCheckAvailability, map[string]any{
		"resource_id": "room-101",
		"start":       futureDay(4).Format(time.RFC3339),
		"end":         futureDay(6).Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.False(t, out.GetFields()["is_available"].GetBoolValue())
	assert.Contains(t, out.GetFields()["message"].GetStringValue(), "already booked")

	out, err = invoke(t, ctx, conn, methodCheckAvailability, map[string]any{
		"resource_id": "room-101",
		"start":       futureDay(5).Format(time.RFC3339),
		"end":         futureDay(6).Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.True(t, out.GetFields()["is_available"].GetBoolValue())
}

func TestGRPC_CheckAvailability_InvalidArgument(t *testing.T) {
	_, conn := newBufconnClient(t, config.APIConfig{})

	_, err := invoke(t, context.Background(), conn, methodCheckAvailability, map[string]any{
		"start": "2026-12-01",
		"end":   "2026-12-02",
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(t, context.Background(), conn, methodCheckAvailability, map[string]any{
		"resource_id": "room-101",
		"start":       "2026-12-02",
		"end":         "2026-12-01",
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPC_ComputePrice(t *testing.T) {
	_, conn := newBufconnClient(t, config.APIConfig{})
	ctx := context.Background()

	out, err := invoke(t, ctx, conn, methodComputePrice, map[string]any{
		"rate":  100,
		"start": "2026-12-01",
		"end":   "2026-12-04",
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, out.GetFields()["nights"].GetNumberValue())
	assert.InDelta(t, 330.0, out.GetFields()["total"].GetNumberValue(), 1e-9)

	out, err = invoke(t, ctx, conn, methodComputePrice, map[string]any{
		"resource_id": "room-202",
		"start":       "2026-12-01",
		"end":         "2026-12-02",
	})
	require.NoError(t, err)
	assert.InDelta(t, 165.0, out.GetFields()["total"].GetNumberValue(), 1e-9)

	_, err = invoke(t, ctx, conn, methodComputePrice, map[string]any{
		"start": "2026-12-01",
		"end":   "2026-12-04",
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(t, ctx, conn, methodComputePrice, map[string]any{
		"rate":  "100",
		"start": "2026-12-01",
		"end":   "2026-12-04",
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(t, ctx, conn, methodComputePrice, map[string]any{
		"resource_id": "missing",
		"start":       "2026-12-01",
		"end":         "2026-12-02",
	})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPC_GetRecommendations(t *testing.T) {
	_, conn := newBufconnClient(t, config.APIConfig{})

	out, err := invoke(t, context.Background(), conn, methodGetRecommendations, map[string]any{
		"kind":       "table",
		"party_size": 2,
	})
	require.NoError(t, err)

	recs := out.GetFields()["recommendations"].GetListValue().GetValues()
	require.Len(t, recs, 1)
	first := recs[0].GetStructValue().GetFields()
	assert.Equal(t, "table-1", first["resource_id"].GetStringValue())
	assert.Equal(t, 1.0, first["rank"].GetNumberValue())
	assert.True(t, out.GetFields()["fallback_mode"].GetBoolValue())
}

func TestGRPC_AuthAndHealth(t *testing.T) {
	cfg := config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "k", Extra: "e", Permissions: []string{permReadAvailability}},
			},
		},
	}
	_, conn := newBufconnClient(t, cfg)
	req := map[string]any{"rate": 10, "start": "2026-12-01", "end": "2026-12-02"}

	_, err := invoke(t, context.Background(), conn, methodComputePrice, req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	authed := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "k", "x-api-extra", "e")
	_, err = invoke(t, authed, conn, methodComputePrice, req)
	assert.NoError(t, err)

	_, err = invoke(t, authed, conn, methodGetRecommendations, map[string]any{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: engineServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestGRPCErrorMapping(t *testing.T) {
	assert.Equal(t, codes.InvalidArgument, status.Code(grpcError(fieldErr("x", "required", "x is required"))))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(grpcError(context.DeadlineExceeded)))
	assert.Equal(t, codes.Internal, status.Code(grpcError(assert.AnError)))
}

func TestNewGRPCServer_Listen(t *testing.T) {
	env := newTestEnv(t)
	s, err := NewGRPCServer(config.APIConfig{GRPC: config.APIGRPCConfig{Port: 0}}, env.svc, nopLogger())
	require.NoError(t, err)
	assert.NotEmpty(t, s.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Shutdown(ctx)
}

func TestBuildTLSConfig(t *testing.T) {
	t.Run("EmptyPaths", func(t *testing.T) {
		_, err := buildTLSConfig(config.APITLSConfig{Enabled: true})
		assert.Error(t, err)
	})

	t.Run("InvalidCert", func(t *testing.T) {
		_, err := buildTLSConfig(config.APITLSConfig{
			Enabled:  true,
			CertFile: "/nonexistent",
			KeyFile:  "/nonexistent",
		})
		assert.Error(t, err)
	})
}
