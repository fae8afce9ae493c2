package matchmaking_test

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/anonchat/internal/app"
	"github.com/oggyb/anonchat/internal/cache"
	"github.com/oggyb/anonchat/internal/config"
	"github.com/oggyb/anonchat/internal/lock"
	"github.com/oggyb/anonchat/internal/logger"
	mm "github.com/oggyb/anonchat/internal/matchmaking"
	"github.com/oggyb/anonchat/internal/repository"
	"github.com/oggyb/anonchat/internal/server"
	"github.com/oggyb/anonchat/internal/service/matchmaking"
)

//
// Test helpers
//

type nopRelay struct{}

func (nopRelay) SendText(context.Context, int64, string) error { return nil }
func (nopRelay) Notify(context.Context, int64, mm.Notice) error { return nil }

type fixture struct {
	client *matchmaking.Client
	mr     *miniredis.Miniredis
}

// setupService wires an engine on the in-memory store, a miniredis-backed
// stats cache and the gRPC server over bufconn.
//
// Each test gets its own isolated store + Redis.
func setupService(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	log := logger.Discard()
	engine := mm.NewEngine(store, lock.NewKeyedMutex(), nopRelay{}, log, mm.Options{
		PrimaryInterval:   10 * time.Millisecond,
		EscalatedInterval: 10 * time.Millisecond,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = engine.Shutdown(ctx)
	})

	// Fake Redis
	mr := miniredis.RunT(t)
	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.StatsTTL = time.Minute
	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = redisCache.Close() })

	appCtx := app.New(nil, redisCache, log, engine)
	srv := server.NewGRPCServer(log, matchmaking.NewRegistrar(appCtx))

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, lis)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &fixture{client: matchmaking.NewClient(conn), mr: mr}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func (f *fixture) register(t *testing.T, id int64, name string, age int, gender, city string) {
	t.Helper()
	require.NoError(t, f.client.UpdateProfile(context.Background(), mustStruct(t, map[string]any{
		"user_id": float64(id), "name": name, "age": float64(age), "gender": gender, "city": city,
	})))
}

//
// Tests
//

func TestGetUserCreatesDefault(t *testing.T) {
	f := setupService(t)

	u, err := f.client.GetUser(context.Background(), 42)
	require.NoError(t, err)

	m := u.AsMap()
	assert.Equal(t, float64(42), m["id"])
	assert.Equal(t, "idle", m["status"])
	assert.Equal(t, map[string]any{"gender": "any", "min_age": float64(18), "max_age": float64(35), "city": "any"}, m["filter"])
	assert.NotContains(t, m, "searching_since")
}

func TestRequestSearchFlow(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	err := f.client.RequestSearch(ctx, 1)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err), "profile is incomplete")

	f.register(t, 1, "Ann", 25, "female", "Moscow")
	require.NoError(t, f.client.RequestSearch(ctx, 1))
	assert.Equal(t, codes.AlreadyExists, status.Code(f.client.RequestSearch(ctx, 1)))

	u, err := f.client.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "searching", u.AsMap()["status"])
	assert.Contains(t, u.AsMap(), "searching_since")

	ok, err := f.client.CancelSearch(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.client.CancelSearch(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPairChatAndExit(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.register(t, 1, "Ann", 25, "female", "Moscow")
	f.register(t, 2, "Bob", 30, "male", "Moscow")

	require.NoError(t, f.client.RequestSearch(ctx, 1))
	require.NoError(t, f.client.RequestSearch(ctx, 2))

	require.Eventually(t, func() bool {
		u, err := f.client.GetUser(ctx, 2)
		return err == nil && u.AsMap()["status"] == "chatting"
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, f.client.SendMessage(ctx, mustStruct(t, map[string]any{"user_id": float64(1), "text": "hi"})))

	err := f.client.SendMessage(ctx, mustStruct(t, map[string]any{"user_id": float64(1), "text": "   "}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	left, err := f.client.ExitChat(ctx, 2)
	require.NoError(t, err)
	assert.True(t, left)
	left, err = f.client.ExitChat(ctx, 1)
	require.NoError(t, err)
	assert.False(t, left)
}

func TestUpdateFilterPartial(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	out, err := f.client.UpdateFilter(ctx, mustStruct(t, map[string]any{"user_id": float64(5), "gender": "Female", "max_age": float64(40)}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"gender": "female", "min_age": float64(18), "max_age": float64(40), "city": "any"}, out.AsMap())

	_, err = f.client.UpdateFilter(ctx, mustStruct(t, map[string]any{"user_id": float64(5), "min_age": float64(50)}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "min above max")

	_, err = f.client.UpdateFilter(ctx, mustStruct(t, map[string]any{"user_id": float64(5), "min_age": 20.5}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "fractional age")
}

func TestInvalidArguments(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	assert.Equal(t, codes.InvalidArgument, status.Code(f.client.RequestSearch(ctx, 0)))
	_, err := f.client.GetUser(ctx, -3)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = f.client.UpdateProfile(ctx, mustStruct(t, map[string]any{"name": "Ann", "age": float64(20)}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "user_id missing")

	err = f.client.UpdateProfile(ctx, mustStruct(t, map[string]any{"user_id": float64(1), "name": "Ann", "age": float64(400)}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "age out of range")
}

func TestOversizedArguments(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.register(t, 1, "Ann", 25, "female", "Moscow")

	tests := []struct {
		name string
		call func() error
	}{
		{"user id beyond exact float range", func() error {
			return f.client.UpdateProfile(ctx, mustStruct(t, map[string]any{"user_id": 1e30, "name": "Ann", "age": float64(20)}))
		}},
		{"huge age", func() error {
			return f.client.UpdateProfile(ctx, mustStruct(t, map[string]any{"user_id": float64(1), "name": "Ann", "age": 1e30}))
		}},
		{"age beyond int32", func() error {
			return f.client.UpdateProfile(ctx, mustStruct(t, map[string]any{"user_id": float64(1), "name": "Ann", "age": float64(1 << 40)}))
		}},
		{"profile gender too long", func() error {
			return f.client.UpdateProfile(ctx, mustStruct(t, map[string]any{"user_id": float64(1), "name": "Ann", "age": float64(20), "gender": strings.Repeat("g", 33)}))
		}},
		{"filter max age beyond int32", func() error {
			_, err := f.client.UpdateFilter(ctx, mustStruct(t, map[string]any{"user_id": float64(1), "max_age": float64(1 << 40)}))
			return err
		}},
		{"filter min age huge", func() error {
			_, err := f.client.UpdateFilter(ctx, mustStruct(t, map[string]any{"user_id": float64(1), "min_age": -1e300}))
			return err
		}},
		{"filter city too long", func() error {
			_, err := f.client.UpdateFilter(ctx, mustStruct(t, map[string]any{"user_id": float64(1), "city": strings.Repeat("c", 65)}))
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, codes.InvalidArgument, status.Code(tt.call()))
		})
	}

	// nothing above reached the store
	u, err := f.client.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(25), u.AsMap()["age"])
	assert.Equal(t, "female", u.AsMap()["gender"])
}

func TestStatsCacheFirst(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.register(t, 1, "Ann", 25, "female", "Moscow")
	require.NoError(t, f.client.RequestSearch(ctx, 1))

	s, err := f.client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(1), s.AsMap()["searching"])
	assert.Equal(t, false, s.AsMap()["cached"])

	// a stale snapshot is served until it expires
	_, err = f.client.CancelSearch(ctx, 1)
	require.NoError(t, err)
	s, err = f.client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(1), s.AsMap()["searching"])
	assert.Equal(t, true, s.AsMap()["cached"])

	f.mr.FastForward(2 * time.Minute)
	s, err = f.client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(0), s.AsMap()["searching"])
	assert.Equal(t, false, s.AsMap()["cached"])
}
