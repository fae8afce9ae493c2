package matchmaking

import (
	"context"
	"fmt"
	"math"
	"strings"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oggyb/anonchat/internal/app"
	svcErr "github.com/oggyb/anonchat/internal/errors"
	mm "github.com/oggyb/anonchat/internal/matchmaking"
)

// Service implements the Matchmaking gRPC API on top of the engine.
// Each method corresponds to one RPC in ServiceDesc.
type Service struct {
	appCtx *app.AppContext
}

var _ MatchmakingServer = (*Service)(nil)

// NewMatchmakingService creates a new Matchmaking service with dependencies from AppContext.
// Dependencies include:
//   - the engine (searching, chats, profiles)
//   - RedisCache for the stats snapshot, optional
func NewMatchmakingService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// RequestSearch starts a search session for the user.
//
// Example:
//
//	svc.RequestSearch(ctx, wrapperspb.Int64(42))
func (s *Service) RequestSearch(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	id, err := userID(req)
	if err != nil {
		return nil, err
	}
	s.appCtx.Logger.Debug("RequestSearch called", "user_id", id)

	if err := s.appCtx.Engine.OnSearchRequested(ctx, id); err != nil {
		return nil, svcErr.Map(err)
	}
	return &emptypb.Empty{}, nil
}

// CancelSearch stops the user's search. The result is false when no search
// was running.
func (s *Service) CancelSearch(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.BoolValue, error) {
	id, err := userID(req)
	if err != nil {
		return nil, err
	}
	cancelled, err := s.appCtx.Engine.OnSearchCancelled(ctx, id)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return wrapperspb.Bool(cancelled), nil
}

// ExitChat ends the user's chat. The result is false when the user was not
// chatting, so retries are harmless.
func (s *Service) ExitChat(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.BoolValue, error) {
	id, err := userID(req)
	if err != nil {
		return nil, err
	}
	left, err := s.appCtx.Engine.OnChatExit(ctx, id)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return wrapperspb.Bool(left), nil
}

// SendMessage relays text to the sender's companion.
//
// Behavior:
//   - Payload: {"user_id": <int>, "text": <string>}.
//   - Dropped silently when the sender is not chatting.
//   - Unavailable when the companion could not be reached; the chat is over.
func (s *Service) SendMessage(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := requiredInt(req, "user_id")
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(stringField(req, "text"))
	if text == "" {
		return nil, svcErr.InvalidArgument("text must not be empty")
	}

	if err := s.appCtx.Engine.OnUserMessage(ctx, id, text); err != nil {
		s.appCtx.Logger.Warn("SendMessage failed", "user_id", id, "err", err)
		return nil, svcErr.Map(err)
	}
	return &emptypb.Empty{}, nil
}

// GetUser returns the user's profile, filter and status, creating a default
// record on first reference.
func (s *Service) GetUser(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	id, err := userID(req)
	if err != nil {
		return nil, err
	}
	u, err := s.appCtx.Engine.User(ctx, id)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	out := map[string]any{
		"id":     float64(u.ID),
		"name":   u.Profile.Name,
		"age":    float64(u.Profile.Age),
		"gender": u.Profile.Gender,
		"city":   u.Profile.City,
		"status": string(u.Status),
		"filter": filterMap(u.Filter),
	}
	if !u.SearchingSince.IsZero() {
		out["searching_since"] = float64(u.SearchingSince.UnixMilli())
	}
	return toStruct(out)
}

// UpdateProfile overwrites the four profile fields.
//
// Example:
//
//	{"user_id": 42, "name": "Ann", "age": 25, "gender": "female", "city": "Moscow"}
func (s *Service) UpdateProfile(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := requiredInt(req, "user_id")
	if err != nil {
		return nil, err
	}
	age, err := requiredInt(req, "age")
	if err != nil {
		return nil, err
	}
	if err := checkAge(age, "age"); err != nil {
		return nil, err
	}
	p := mm.Profile{
		Name:   strings.TrimSpace(stringField(req, "name")),
		Age:    int(age),
		Gender: strings.TrimSpace(stringField(req, "gender")),
		City:   strings.TrimSpace(stringField(req, "city")),
	}
	if err := s.appCtx.Engine.UpdateProfile(ctx, id, p); err != nil {
		return nil, svcErr.Map(err)
	}
	return &emptypb.Empty{}, nil
}

// UpdateFilter applies a partial filter edit and returns the stored filter.
// Absent keys are left unchanged.
func (s *Service) UpdateFilter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredInt(req, "user_id")
	if err != nil {
		return nil, err
	}

	var upd mm.FilterUpdate
	if v, ok := req.GetFields()["gender"]; ok {
		g := strings.ToLower(strings.TrimSpace(v.GetStringValue()))
		upd.Gender = &g
	}
	if v, ok := req.GetFields()["city"]; ok {
		c := strings.TrimSpace(v.GetStringValue())
		upd.City = &c
	}
	for key, dst := range map[string]**int{"min_age": &upd.MinAge, "max_age": &upd.MaxAge} {
		n, present, err := intField(req, key)
		if err != nil {
			return nil, err
		}
		if present {
			if err := checkAge(n, key); err != nil {
				return nil, err
			}
			v := int(n)
			*dst = &v
		}
	}

	f, err := s.appCtx.Engine.UpdateFilter(ctx, id, upd)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return toStruct(filterMap(f))
}

// Stats returns how many users are searching and how many chats are live.
// Cache-first strategy:
//  1. Attempts to read the snapshot from Redis (stats:engine).
//  2. On a miss or cache error, falls back to the store.
//  3. On a store read, refreshes Redis with a short TTL.
func (s *Service) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	rc := s.appCtx.RedisCache
	if rc != nil {
		if st, ok, err := rc.GetStats(ctx); err == nil && ok {
			return statsStruct(st, true)
		} else if err != nil {
			s.appCtx.Logger.Warn("stats cache read failed", "err", err)
		}
	}

	st, err := s.appCtx.Engine.Stats(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if rc != nil {
		_ = rc.SetStats(ctx, st)
	}
	return statsStruct(st, false)
}

// --- helpers ---

func userID(req *wrapperspb.Int64Value) (int64, error) {
	if req.GetValue() <= 0 {
		return 0, svcErr.InvalidArgument("user id must be positive")
	}
	return req.GetValue(), nil
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// intField reads a whole number. JSON-ish numbers arrive as float64.
func intField(s *structpb.Struct, key string) (int64, bool, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, false, nil
	}
	num, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || num.NumberValue != math.Trunc(num.NumberValue) {
		return 0, true, svcErr.InvalidArgument(fmt.Sprintf("%s must be an integer", key))
	}
	// float64 holds integers exactly only up to 2^53
	if math.Abs(num.NumberValue) > 1<<53 {
		return 0, true, svcErr.InvalidArgument(fmt.Sprintf("%s out of range", key))
	}
	return int64(num.NumberValue), true, nil
}

// checkAge keeps n within int range on every platform; the engine applies the
// real age limits.
func checkAge(n int64, key string) error {
	if n < math.MinInt32 || n > math.MaxInt32 {
		return svcErr.InvalidArgument(fmt.Sprintf("%s out of range", key))
	}
	return nil
}

func requiredInt(s *structpb.Struct, key string) (int64, error) {
	n, ok, err := intField(s, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, svcErr.InvalidArgument(key + " is required")
	}
	if key == "user_id" && n <= 0 {
		return 0, svcErr.InvalidArgument("user_id must be positive")
	}
	return n, nil
}

func filterMap(f mm.Filter) map[string]any {
	return map[string]any{
		"gender":  f.Gender,
		"min_age": float64(f.MinAge),
		"max_age": float64(f.MaxAge),
		"city":    f.City,
	}
}

func statsStruct(st mm.Stats, cached bool) (*structpb.Struct, error) {
	return toStruct(map[string]any{
		"searching": float64(st.Searching),
		"pairings":  float64(st.Pairings),
		"cached":    cached,
	})
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return out, nil
}
