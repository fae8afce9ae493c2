package server_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oggyb/anonchat/internal/logger"
	"github.com/oggyb/anonchat/internal/server"
)

func TestRouter(t *testing.T) {
	srv := httptest.NewServer(server.NewRouter())
	defer srv.Close()

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/", "text/plain", "anonchat is running"},
		{"/health", "application/json", `{"status":"ok"}`},
		{"/metrics", "text/plain", "anonchat_active_search_sessions"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), tt.contentType))
			assert.Contains(t, string(body), tt.contains)
		})
	}
}

func TestRouterUnknownPath(t *testing.T) {
	rec := httptest.NewRecorder()
	server.NewRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type namedRegistrar struct{ registered bool }

func (r *namedRegistrar) Register(*grpc.Server) { r.registered = true }
func (r *namedRegistrar) Name() string { return "anonchat.v1.Test" }

func TestGRPCServerHealthAndGracefulStop(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	reg := &namedRegistrar{}
	srv := server.NewGRPCServer(logger.Discard(), reg)
	require.True(t, reg.registered)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	for _, name := range []string{"", "anonchat.v1.Test"} {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: name})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus(), name)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
