package matchmaking

import (
	"errors"
	"fmt"
)

var (
	// ErrProfileIncomplete rejects a search request for a user missing a
	// required profile field.
	ErrProfileIncomplete = errors.New("profile incomplete")
	ErrAlreadySearching  = errors.New("already searching")
	ErrAlreadyChatting   = errors.New("already chatting")

	// ErrRaceLost denies a claim whose candidate was taken between the scan
	// and the claim. Sessions keep scanning after it.
	ErrRaceLost = errors.New("candidate no longer available")
	// ErrNotSearching denies a claim whose initiator left the searching state.
	ErrNotSearching = errors.New("user is not searching")
	// ErrNotEligible is returned by a Store when a pairing write finds either
	// party outside the searching state.
	ErrNotEligible = errors.New("users not eligible for pairing")

	ErrDeliveryFailed = errors.New("message delivery failed")
	// ErrUnreachable is wrapped by a Relay when the recipient can never be
	// reached again (blocked the bot, deleted the account).
	ErrUnreachable = errors.New("recipient unreachable")
	ErrSelfClaim      = errors.New("cannot pair a user with themselves")
	ErrEngineClosed   = errors.New("engine closed")
)

// ValidationError reports a profile or filter value that must not be stored.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
