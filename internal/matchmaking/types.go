package matchmaking

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Status is the single source of truth for which code path may act on a user.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSearching Status = "searching"
	StatusChatting  Status = "chatting"
)

// Any is the wildcard value for the gender and city preferences.
const Any = "any"

// Default filter applied to a user on first reference.
const (
	DefaultMinAge = 18
	DefaultMaxAge = 35
)

const (
	maxNameLen   = 50
	maxGenderLen = 32
	maxCityLen   = 64
	maxAge       = 150
)

// Profile holds the self-described fields other users filter on.
type Profile struct {
	Name   string
	Age    int
	Gender string
	City   string
}

// Complete reports whether every field required for searching is set.
func (p Profile) Complete() bool {
	return strings.TrimSpace(p.Name) != "" &&
		p.Age > 0 &&
		strings.TrimSpace(p.Gender) != "" &&
		strings.TrimSpace(p.City) != ""
}

// Validate rejects profile values the store must never hold.
func (p Profile) Validate() error {
	switch {
	case utf8.RuneCountInString(p.Name) > maxNameLen:
		return &ValidationError{Field: "name", Reason: "too long"}
	case p.Age < 0 || p.Age > maxAge:
		return &ValidationError{Field: "age", Reason: "out of range"}
	case utf8.RuneCountInString(p.Gender) > maxGenderLen:
		return &ValidationError{Field: "gender", Reason: "too long"}
	case utf8.RuneCountInString(p.City) > maxCityLen:
		return &ValidationError{Field: "city", Reason: "too long"}
	}
	return nil
}

// Filter is a user's preference for companions.
type Filter struct {
	Gender string
	MinAge int
	MaxAge int
	City   string
}

// DefaultFilter returns the filter every new user starts with.
func DefaultFilter() Filter {
	return Filter{Gender: Any, MinAge: DefaultMinAge, MaxAge: DefaultMaxAge, City: Any}
}

// Validate rejects inverted or negative age bounds and blank or oversized
// preferences.
func (f Filter) Validate() error {
	switch {
	case f.MinAge < 0:
		return &ValidationError{Field: "min_age", Reason: "must not be negative"}
	case f.MaxAge < f.MinAge:
		return &ValidationError{Field: "max_age", Reason: "must not be below min_age"}
	case strings.TrimSpace(f.Gender) == "":
		return &ValidationError{Field: "gender", Reason: "must be set"}
	case strings.TrimSpace(f.City) == "":
		return &ValidationError{Field: "city", Reason: "must be set"}
	case utf8.RuneCountInString(f.Gender) > maxGenderLen:
		return &ValidationError{Field: "gender", Reason: "too long"}
	case utf8.RuneCountInString(f.City) > maxCityLen:
		return &ValidationError{Field: "city", Reason: "too long"}
	}
	return nil
}

// FilterUpdate is a partial filter edit. Nil fields are left unchanged.
type FilterUpdate struct {
	Gender *string
	MinAge *int
	MaxAge *int
	City   *string
}

// Apply returns f with the non-nil fields of u applied, or a ValidationError
// if the result would hold an inverted range.
func (f Filter) Apply(u FilterUpdate) (Filter, error) {
	if u.Gender != nil {
		f.Gender = *u.Gender
	}
	if u.MinAge != nil {
		f.MinAge = *u.MinAge
	}
	if u.MaxAge != nil {
		f.MaxAge = *u.MaxAge
	}
	if u.City != nil {
		f.City = *u.City
	}
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// User is a profile row together with its filter and status.
type User struct {
	ID      int64
	Profile Profile
	Filter  Filter
	Status  Status

	// SearchingSince is zero unless Status is StatusSearching.
	SearchingSince time.Time
}

// Pairing is a live chat between two users.
type Pairing struct {
	ID        string
	UserA     int64
	UserB     int64
	CreatedAt time.Time
}

// Other returns the companion of id within p.
func (p Pairing) Other(id int64) int64 {
	if p.UserA == id {
		return p.UserB
	}
	return p.UserA
}

// Stats is a point-in-time count of engine state.
type Stats struct {
	Searching int64
	Pairings  int64
}
