package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	svcErr "github.com/oggyb/anonchat/internal/errors"
	"github.com/oggyb/anonchat/internal/matchmaking"
)

func TestMap(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"validation", &matchmaking.ValidationError{Field: "age", Reason: "out of range"}, codes.InvalidArgument},
		{"profile incomplete", matchmaking.ErrProfileIncomplete, codes.FailedPrecondition},
		{"already searching", matchmaking.ErrAlreadySearching, codes.AlreadyExists},
		{"already chatting", fmt.Errorf("request: %w", matchmaking.ErrAlreadyChatting), codes.AlreadyExists},
		{"delivery failed", fmt.Errorf("%w: blocked", matchmaking.ErrDeliveryFailed), codes.Unavailable},
		{"engine closed", matchmaking.ErrEngineClosed, codes.Unavailable},
		{"not found", gorm.ErrRecordNotFound, codes.NotFound},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"canceled", fmt.Errorf("lock user 1: %w", context.Canceled), codes.Canceled},
		{"other", errors.New("boom"), codes.Internal},
		{"already a status", status.Error(codes.PermissionDenied, "no"), codes.PermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(svcErr.Map(tt.err)))
		})
	}

	assert.NoError(t, svcErr.Map(nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(svcErr.InvalidArgument("bad")))
}
