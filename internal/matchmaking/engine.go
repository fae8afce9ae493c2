package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oggyb/anonchat/internal/metrics"
)

// Options tunes the search protocol.
type Options struct {
	PrimaryInterval   time.Duration
	PrimaryTicks      int
	EscalatedInterval time.Duration
	AgeStep           int
	AgeCeiling        int
	MaxFailures       int
	PageSize          int
}

// DefaultOptions returns the production search timings.
func DefaultOptions() Options {
	return Options{
		PrimaryInterval:   5 * time.Second,
		PrimaryTicks:      3,
		EscalatedInterval: 10 * time.Second,
		AgeStep:           10,
		AgeCeiling:        99,
		MaxFailures:       3,
		PageSize:          50,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PrimaryInterval <= 0 {
		o.PrimaryInterval = d.PrimaryInterval
	}
	if o.PrimaryTicks <= 0 {
		o.PrimaryTicks = d.PrimaryTicks
	}
	if o.EscalatedInterval <= 0 {
		o.EscalatedInterval = d.EscalatedInterval
	}
	// escalated ticks never run faster than primary ones
	if o.EscalatedInterval < o.PrimaryInterval {
		o.EscalatedInterval = o.PrimaryInterval
	}
	if o.AgeStep <= 0 {
		o.AgeStep = d.AgeStep
	}
	if o.AgeCeiling <= 0 {
		o.AgeCeiling = d.AgeCeiling
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = d.MaxFailures
	}
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	return o
}

// Engine owns the search sessions and exposes the operations the bot and API
// layers call.
type Engine struct {
	store Store
	coord *Coordinator
	relay Relay
	log   *slog.Logger
	opts  Options

	// ctx is the parent of all session store calls; cancelled on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[int64]*session
	closed   bool
	wg       sync.WaitGroup
}

// NewEngine wires an engine. Zero-valued options fall back to DefaultOptions.
func NewEngine(store Store, locker Locker, relay Relay, log *slog.Logger, opts Options) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	effective := opts.withDefaults()
	if opts.EscalatedInterval > 0 && effective.EscalatedInterval != opts.EscalatedInterval {
		log.Warn("escalated interval raised to primary interval",
			"configured", opts.EscalatedInterval, "effective", effective.EscalatedInterval)
	}
	return &Engine{
		store:    store,
		coord:    NewCoordinator(store, locker, log),
		relay:    relay,
		log:      log,
		opts:     effective,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[int64]*session),
	}
}

// OnSearchRequested starts a search session for id.
func (e *Engine) OnSearchRequested(ctx context.Context, id int64) error {
	for {
		err := e.requestSearch(ctx, id)
		if !errors.Is(err, errSessionDraining) {
			return err
		}
	}
}

// errSessionDraining means a stopped session of the user has not exited yet.
var errSessionDraining = errors.New("previous session still running")

func (e *Engine) requestSearch(ctx context.Context, id int64) error {
	// A session whose user already left searching may still be finishing its
	// scan; let it go first so the user never has two. The wait happens
	// without id's lock because that session may need it to finish a claim.
	if prev := e.lookup(id); prev != nil {
		u, err := e.store.GetUser(ctx, id)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		switch u.Status {
		case StatusSearching:
			return ErrAlreadySearching
		case StatusChatting:
			return ErrAlreadyChatting
		}
		e.stopSession(id)
		select {
		case <-prev.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return e.coord.WithUser(ctx, id, func() error {
		u, err := e.store.GetUser(ctx, id)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		switch u.Status {
		case StatusChatting:
			return ErrAlreadyChatting
		case StatusSearching:
			if e.lookup(id) != nil {
				return ErrAlreadySearching
			}
			// Left searching without a session by an earlier failure; adopt.
			e.log.Warn("adopting orphaned search", "user_id", id)
		default:
			if !u.Profile.Complete() {
				return ErrProfileIncomplete
			}
			// A session stopped after the check above; wait for it again.
			if e.lookup(id) != nil {
				return errSessionDraining
			}
			if err := e.store.SetStatus(ctx, id, StatusSearching); err != nil {
				return fmt.Errorf("set searching: %w", err)
			}
			u.Status = StatusSearching
		}
		if err := e.spawn(u); err != nil {
			if resetErr := e.store.SetStatus(ctx, id, StatusIdle); resetErr != nil {
				return errors.Join(err, resetErr)
			}
			return err
		}
		return nil
	})
}

// OnSearchCancelled stops id's search. It reports whether a search was
// running.
func (e *Engine) OnSearchCancelled(ctx context.Context, id int64) (bool, error) {
	var cancelled bool
	err := e.coord.WithUser(ctx, id, func() error {
		u, err := e.store.GetUser(ctx, id)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if u.Status != StatusSearching {
			return nil
		}
		if err := e.store.SetStatus(ctx, id, StatusIdle); err != nil {
			return fmt.Errorf("set idle: %w", err)
		}
		cancelled = true
		// Stopped under the lock so a search requested right after is never
		// the one cancelled here.
		e.stopSession(id)
		return nil
	})
	if err != nil {
		return false, err
	}

	if cancelled {
		metrics.SearchesCancelled.Inc()
		e.log.Info("search cancelled", "user_id", id)
	}
	return cancelled, nil
}

// OnChatExit ends id's chat and tells the companion. It reports false when id
// was not chatting.
func (e *Engine) OnChatExit(ctx context.Context, id int64) (bool, error) {
	p, ok, err := e.coord.Release(ctx, id)
	if err != nil || !ok {
		return false, err
	}

	metrics.ChatExits.Inc()
	companion := p.Other(id)
	e.log.Info("chat ended", "user_id", id, "companion_id", companion, "pairing_id", p.ID)
	if err := e.relay.Notify(ctx, companion, Notice{Kind: NoticeCompanionLeft}); err != nil {
		e.log.Warn("companion left notice not delivered", "user_id", companion, "err", err)
	}
	return true, nil
}

// OnUserMessage forwards text to id's companion. Messages from users who are
// not chatting are dropped. A failed delivery is returned as ErrDeliveryFailed;
// when the companion is unreachable for good the chat is also ended on their
// behalf.
func (e *Engine) OnUserMessage(ctx context.Context, id int64, text string) error {
	u, err := e.store.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if u.Status != StatusChatting {
		return nil
	}
	companion, ok, err := e.store.Companion(ctx, id)
	if err != nil {
		return fmt.Errorf("load companion: %w", err)
	}
	if !ok {
		return nil
	}

	if err := e.relay.SendText(ctx, companion, text); err != nil {
		metrics.DeliveryFailures.Inc()
		if !errors.Is(err, ErrUnreachable) {
			e.log.Warn("message delivery failed", "user_id", id, "companion_id", companion, "err", err)
			return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
		}
		e.log.Warn("companion unreachable, ending chat", "user_id", id, "companion_id", companion, "err", err)
		if _, exitErr := e.OnChatExit(ctx, companion); exitErr != nil {
			e.log.Error("failed to end chat with unreachable companion", "companion_id", companion, "err", exitErr)
		}
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	metrics.MessagesRelayed.Inc()
	return nil
}

// Companion returns id's current chat partner.
func (e *Engine) Companion(ctx context.Context, id int64) (int64, bool, error) {
	return e.store.Companion(ctx, id)
}

// User returns id's record, creating it on first reference.
func (e *Engine) User(ctx context.Context, id int64) (User, error) {
	return e.store.GetUser(ctx, id)
}

// UpdateProfile validates and stores id's profile.
func (e *Engine) UpdateProfile(ctx context.Context, id int64, p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, err := e.store.GetUser(ctx, id); err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	return e.store.UpdateProfile(ctx, id, p)
}

// UpdateFilter applies a partial filter edit for id.
func (e *Engine) UpdateFilter(ctx context.Context, id int64, u FilterUpdate) (Filter, error) {
	cur, err := e.store.GetUser(ctx, id)
	if err != nil {
		return Filter{}, fmt.Errorf("load user: %w", err)
	}
	if _, err := cur.Filter.Apply(u); err != nil {
		return Filter{}, err
	}
	return e.store.UpdateFilter(ctx, id, u)
}

// Stats returns the store's counts.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	return e.store.Stats(ctx)
}

// Restore returns users persisted as searching, whose sessions died with a
// previous process, to idle and tells them so.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	var orphans []int64
	token := ""
	for {
		page, next, err := e.store.ListSearching(ctx, 0, token, e.opts.PageSize)
		if err != nil {
			return 0, fmt.Errorf("list searching: %w", err)
		}
		for _, u := range page {
			if e.lookup(u.ID) == nil {
				orphans = append(orphans, u.ID)
			}
		}
		if next == "" {
			break
		}
		token = next
	}

	for _, id := range orphans {
		e.resetSearch(ctx, id, nil)
	}
	return len(orphans), nil
}

// Shutdown stops every session, returns its user to idle and waits for the
// session goroutines to exit.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	running := make([]int64, 0, len(e.sessions))
	for id, s := range e.sessions {
		running = append(running, id)
		closeOnce(s)
	}
	e.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		e.cancel()
		return ctx.Err()
	}
	e.cancel()

	for _, id := range running {
		e.resetSearch(ctx, id, nil)
	}
	return nil
}

// spawn must be called with id's lock held.
func (e *Engine) spawn(u User) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if _, ok := e.sessions[u.ID]; ok {
		return errSessionDraining
	}

	s := newSession(e, u)
	e.sessions[u.ID] = s
	e.wg.Add(1)
	metrics.SearchesStarted.Inc()
	metrics.ActiveSessions.Inc()
	e.log.Info("search started", "user_id", u.ID)

	go s.run()
	return nil
}

func (e *Engine) sessionDone(s *session) {
	e.mu.Lock()
	if e.sessions[s.userID] == s {
		delete(e.sessions, s.userID)
	}
	closeOnce(s)
	e.mu.Unlock()

	metrics.ActiveSessions.Dec()
	close(s.done)
	e.wg.Done()
}

func (e *Engine) lookup(id int64) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[id]
}

func (e *Engine) stopSession(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[id]; ok {
		closeOnce(s)
	}
}

// closeOnce must be called with e.mu held.
func closeOnce(s *session) {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}

// paired finishes a granted claim: stops the candidate's session and tells
// both users. A user who cannot be told is taken out of the chat.
func (e *Engine) paired(ctx context.Context, p Pairing, initiator int64) {
	companion := p.Other(initiator)
	e.stopSession(companion)
	metrics.PairingsCreated.Inc()

	for _, n := range []struct {
		to        int64
		initiator bool
	}{
		{initiator, true},
		{companion, false},
	} {
		if err := e.relay.Notify(ctx, n.to, Notice{Kind: NoticeMatched, Initiator: n.initiator}); err != nil {
			e.log.Warn("match notice not delivered", "user_id", n.to, "pairing_id", p.ID, "err", err)
			if _, exitErr := e.OnChatExit(ctx, n.to); exitErr != nil {
				e.log.Error("failed to end chat with unreachable user", "user_id", n.to, "err", exitErr)
			}
			return
		}
	}
}

// abortSearch returns id to idle after its session gave up and tells them.
func (e *Engine) abortSearch(id int64, cause error) {
	metrics.SessionFailures.Inc()
	e.log.Error("search aborted", "user_id", id, "err", cause)
	e.resetSearch(e.ctx, id, cause)
}

func (e *Engine) resetSearch(ctx context.Context, id int64, cause error) {
	var reset bool
	err := e.coord.WithUser(ctx, id, func() error {
		u, err := e.store.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if u.Status != StatusSearching {
			return nil
		}
		reset = true
		return e.store.SetStatus(ctx, id, StatusIdle)
	})
	if err != nil {
		e.log.Error("failed to reset search", "user_id", id, "err", errors.Join(cause, err))
		return
	}
	if !reset {
		return
	}
	if err := e.relay.Notify(ctx, id, Notice{Kind: NoticeSearchFailed}); err != nil {
		e.log.Warn("search failed notice not delivered", "user_id", id, "err", err)
	}
}
