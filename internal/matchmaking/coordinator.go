package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// exitRetries bounds how often Release retries when a companion changes
// between lookup and locking.
const exitRetries = 3

// Coordinator serializes pairing decisions through per-user locks. Locks for
// two users are always taken in ascending id order.
type Coordinator struct {
	store  Store
	locker Locker
	log    *slog.Logger
}

// NewCoordinator binds a coordinator to a store and a per-user locker.
func NewCoordinator(store Store, locker Locker, log *slog.Logger) *Coordinator {
	return &Coordinator{store: store, locker: locker, log: log}
}

// TryClaim pairs a with b if, after both locks are held, both are still
// searching. A denial is reported as ErrNotSearching when a itself is no
// longer eligible and ErrRaceLost when b was taken.
func (c *Coordinator) TryClaim(ctx context.Context, a, b int64) (Pairing, error) {
	if a == b {
		return Pairing{}, ErrSelfClaim
	}

	unlock, err := c.lockPair(ctx, a, b)
	if err != nil {
		return Pairing{}, err
	}
	defer unlock()

	self, err := c.store.GetUser(ctx, a)
	if err != nil {
		return Pairing{}, fmt.Errorf("revalidate %d: %w", a, err)
	}
	if self.Status != StatusSearching {
		return Pairing{}, ErrNotSearching
	}
	cand, err := c.store.GetUser(ctx, b)
	if err != nil {
		return Pairing{}, fmt.Errorf("revalidate %d: %w", b, err)
	}
	if cand.Status != StatusSearching {
		return Pairing{}, ErrRaceLost
	}

	p, err := c.store.CreatePairing(ctx, a, b)
	if errors.Is(err, ErrNotEligible) {
		// Only reachable when a status was written without holding the lock.
		c.log.Warn("pairing write found stale status", "user_id", a, "candidate_id", b)
		return Pairing{}, ErrRaceLost
	}
	if err != nil {
		return Pairing{}, fmt.Errorf("create pairing: %w", err)
	}
	return p, nil
}

// Release destroys id's pairing while holding both parties' locks. It reports
// false when id is not paired, which makes repeated calls harmless.
func (c *Coordinator) Release(ctx context.Context, id int64) (Pairing, bool, error) {
	for range exitRetries {
		companion, ok, err := c.store.Companion(ctx, id)
		if err != nil || !ok {
			return Pairing{}, false, err
		}

		unlock, err := c.lockPair(ctx, id, companion)
		if err != nil {
			return Pairing{}, false, err
		}

		current, ok, err := c.store.Companion(ctx, id)
		if err != nil || !ok {
			unlock()
			return Pairing{}, false, err
		}
		if current != companion {
			unlock()
			continue
		}

		p, ok, err := c.store.DestroyPairing(ctx, id)
		unlock()
		return p, ok, err
	}
	return Pairing{}, false, fmt.Errorf("release %d: companion kept changing", id)
}

// WithUser runs fn while holding id's lock.
func (c *Coordinator) WithUser(ctx context.Context, id int64, fn func() error) error {
	unlock, err := c.locker.Lock(ctx, id)
	if err != nil {
		return fmt.Errorf("lock user %d: %w", id, err)
	}
	defer unlock()
	return fn()
}

func (c *Coordinator) lockPair(ctx context.Context, a, b int64) (func(), error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}

	unlockFirst, err := c.locker.Lock(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("lock user %d: %w", first, err)
	}
	if first == second {
		return unlockFirst, nil
	}
	unlockSecond, err := c.locker.Lock(ctx, second)
	if err != nil {
		unlockFirst()
		return nil, fmt.Errorf("lock user %d: %w", second, err)
	}
	return func() {
		unlockSecond()
		unlockFirst()
	}, nil
}
