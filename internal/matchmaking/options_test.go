package matchmaking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptionsWithDefaults(t *testing.T) {
	assert.Equal(t, DefaultOptions(), Options{}.withDefaults())

	tests := []struct {
		name          string
		primary       time.Duration
		escalated     time.Duration
		wantEscalated time.Duration
	}{
		{"escalated below primary is raised", 5 * time.Second, time.Second, 5 * time.Second},
		{"unset escalated below primary is raised", 30 * time.Second, 0, 30 * time.Second},
		{"equal intervals are kept", 2 * time.Second, 2 * time.Second, 2 * time.Second},
		{"slower escalated is kept", time.Second, time.Minute, time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Options{PrimaryInterval: tt.primary, EscalatedInterval: tt.escalated}.withDefaults()
			assert.Equal(t, tt.primary, got.PrimaryInterval)
			assert.Equal(t, tt.wantEscalated, got.EscalatedInterval)
		})
	}
}
