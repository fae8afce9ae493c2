package matchmaking_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oggyb/anonchat/internal/matchmaking"
)

func user(id int64, p matchmaking.Profile, f matchmaking.Filter) matchmaking.User {
	return matchmaking.User{ID: id, Profile: p, Filter: f, Status: matchmaking.StatusSearching}
}

func TestCompatible(t *testing.T) {
	anyone := matchmaking.Filter{Gender: matchmaking.Any, MinAge: 18, MaxAge: 99, City: matchmaking.Any}
	ann := matchmaking.Profile{Name: "Ann", Age: 25, Gender: "female", City: "Moscow"}
	bob := matchmaking.Profile{Name: "Bob", Age: 30, Gender: "male", City: "Kazan"}

	tests := []struct {
		name string
		a, b matchmaking.User
		want bool
	}{
		{
			name: "open filters",
			a:    user(1, ann, anyone),
			b:    user(2, bob, anyone),
			want: true,
		},
		{
			name: "gender mismatch on one side",
			a:    user(1, ann, matchmaking.Filter{Gender: "female", MinAge: 18, MaxAge: 99, City: matchmaking.Any}),
			b:    user(2, bob, anyone),
			want: false,
		},
		{
			name: "age bounds are inclusive",
			a:    user(1, ann, matchmaking.Filter{Gender: matchmaking.Any, MinAge: 30, MaxAge: 30, City: matchmaking.Any}),
			b:    user(2, bob, matchmaking.Filter{Gender: matchmaking.Any, MinAge: 25, MaxAge: 25, City: matchmaking.Any}),
			want: true,
		},
		{
			name: "age just outside",
			a:    user(1, ann, matchmaking.Filter{Gender: matchmaking.Any, MinAge: 18, MaxAge: 29, City: matchmaking.Any}),
			b:    user(2, bob, anyone),
			want: false,
		},
		{
			name: "city ignores case",
			a:    user(1, ann, matchmaking.Filter{Gender: matchmaking.Any, MinAge: 18, MaxAge: 99, City: "kazan"}),
			b:    user(2, bob, anyone),
			want: true,
		},
		{
			name: "city mismatch",
			a:    user(1, ann, anyone),
			b:    user(2, bob, matchmaking.Filter{Gender: matchmaking.Any, MinAge: 18, MaxAge: 99, City: "Kazan"}),
			want: false,
		},
		{
			name: "unset age fails an adult range",
			a:    user(1, matchmaking.Profile{Name: "Ann", Gender: "female", City: "Moscow"}, anyone),
			b:    user(2, bob, matchmaking.Filter{Gender: matchmaking.Any, MinAge: 18, MaxAge: 35, City: matchmaking.Any}),
			want: false,
		},
		{
			name: "unset age passes a range from zero",
			a:    user(1, matchmaking.Profile{Name: "Ann", Gender: "female", City: "Moscow"}, anyone),
			b:    user(2, bob, matchmaking.Filter{Gender: matchmaking.Any, MinAge: 0, MaxAge: 35, City: matchmaking.Any}),
			want: true,
		},
		{
			name: "unset city fails a city preference",
			a:    user(1, matchmaking.Profile{Name: "Ann", Age: 25, Gender: "female"}, anyone),
			b:    user(2, bob, matchmaking.Filter{Gender: matchmaking.Any, MinAge: 18, MaxAge: 99, City: "Moscow"}),
			want: false,
		},
		{
			name: "unset gender fails a gender preference",
			a:    user(1, matchmaking.Profile{Name: "Ann", Age: 25, City: "Moscow"}, anyone),
			b:    user(2, bob, matchmaking.Filter{Gender: "female", MinAge: 18, MaxAge: 99, City: matchmaking.Any}),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchmaking.Compatible(tt.a, tt.b))
			assert.Equal(t, tt.want, matchmaking.Compatible(tt.b, tt.a), "compatibility is symmetric")
		})
	}
}

func TestEscalate(t *testing.T) {
	f := matchmaking.Filter{Gender: "female", MinAge: 20, MaxAge: 25, City: "Moscow"}

	got := matchmaking.Escalate(f, 10, 99)
	assert.Equal(t, matchmaking.Filter{Gender: matchmaking.Any, MinAge: 20, MaxAge: 35, City: matchmaking.Any}, got)

	// capped at the ceiling
	got = matchmaking.Escalate(matchmaking.Filter{Gender: "male", MinAge: 18, MaxAge: 95, City: "x"}, 10, 99)
	assert.Equal(t, 99, got.MaxAge)

	// never lowered when already above the ceiling
	got = matchmaking.Escalate(matchmaking.Filter{Gender: "male", MinAge: 18, MaxAge: 120, City: "x"}, 10, 99)
	assert.Equal(t, 120, got.MaxAge)
	assert.Equal(t, 18, got.MinAge, "min age is untouched")
}

func TestFilterApply(t *testing.T) {
	base := matchmaking.DefaultFilter()
	minAge, maxAge := 40, 30

	_, err := base.Apply(matchmaking.FilterUpdate{MinAge: &minAge, MaxAge: &maxAge})
	var verr *matchmaking.ValidationError
	assert.ErrorAs(t, err, &verr)

	longGender, longCity := strings.Repeat("g", 33), strings.Repeat("c", 65)
	_, err = base.Apply(matchmaking.FilterUpdate{Gender: &longGender})
	if assert.ErrorAs(t, err, &verr) {
		assert.Equal(t, "gender", verr.Field)
	}
	_, err = base.Apply(matchmaking.FilterUpdate{City: &longCity})
	if assert.ErrorAs(t, err, &verr) {
		assert.Equal(t, "city", verr.Field)
	}

	city := "Kazan"
	next, err := base.Apply(matchmaking.FilterUpdate{City: &city})
	assert.NoError(t, err)
	assert.Equal(t, "Kazan", next.City)
	assert.Equal(t, base.MaxAge, next.MaxAge)
}

func TestProfile(t *testing.T) {
	assert.False(t, matchmaking.Profile{Name: "Ann", Age: 20, Gender: "female"}.Complete())
	assert.True(t, matchmaking.Profile{Name: "Ann", Age: 20, Gender: "female", City: "Moscow"}.Complete())

	assert.Error(t, matchmaking.Profile{Age: -1}.Validate())
	assert.NoError(t, matchmaking.Profile{Name: "Ann", Age: 100}.Validate())
	assert.NoError(t, matchmaking.Profile{Gender: strings.Repeat("ж", 32)}.Validate(), "limits count runes")
	assert.Error(t, matchmaking.Profile{Gender: strings.Repeat("g", 33)}.Validate())
	assert.Error(t, matchmaking.Profile{City: strings.Repeat("c", 65)}.Validate())
}
