package matchmaking

import "context"

// Store is the profile and pairing storage the engine depends on.
//
// Implementations must make CreatePairing and DestroyPairing atomic: both
// status changes and the pairing rows become visible together or not at all.
type Store interface {
	// GetUser returns the user, creating a default idle record on first
	// reference.
	GetUser(ctx context.Context, id int64) (User, error)
	UpdateProfile(ctx context.Context, id int64, p Profile) error
	// UpdateFilter applies a partial update and returns the stored filter.
	UpdateFilter(ctx context.Context, id int64, u FilterUpdate) (Filter, error)
	SetStatus(ctx context.Context, id int64, status Status) error

	// ListSearching returns one page of searching users other than exclude,
	// oldest search first. An empty next token means the listing is done.
	ListSearching(ctx context.Context, exclude int64, pageToken string, limit int) ([]User, string, error)

	// CreatePairing moves both users from searching to chatting and records
	// the pairing. It fails with ErrNotEligible if either is not searching.
	CreatePairing(ctx context.Context, a, b int64) (Pairing, error)
	Companion(ctx context.Context, id int64) (int64, bool, error)
	// DestroyPairing removes id's pairing for both sides and returns both
	// users to idle. It reports false when id has no pairing.
	DestroyPairing(ctx context.Context, id int64) (Pairing, bool, error)

	Stats(ctx context.Context) (Stats, error)
}

// Locker provides mutual exclusion scoped to a single user id.
type Locker interface {
	Lock(ctx context.Context, id int64) (unlock func(), err error)
}

// NoticeKind names a session-state change a user is told about.
type NoticeKind string

const (
	NoticeMatched       NoticeKind = "matched"
	NoticeEscalated     NoticeKind = "escalated"
	NoticeCompanionLeft NoticeKind = "companion_left"
	NoticeSearchFailed  NoticeKind = "search_failed"
)

// Notice is a session-state change sent to a user.
type Notice struct {
	Kind NoticeKind
	// Initiator is set on NoticeMatched for the user whose session found the
	// companion.
	Initiator bool
	// Filter carries the widened filter on NoticeEscalated.
	Filter Filter
}

// Relay delivers chat text and notices over the messaging transport.
type Relay interface {
	SendText(ctx context.Context, to int64, text string) error
	Notify(ctx context.Context, to int64, n Notice) error
}
