package matchmaking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oggyb/anonchat/internal/metrics"
)

// Phase is the search strictness of a session.
type Phase string

const (
	PhasePrimary   Phase = "primary"
	PhaseEscalated Phase = "escalated"
)

// session drives the scan/escalate/claim loop for one searching user. All of
// its fields except stop and done are owned by the session goroutine.
type session struct {
	engine *Engine
	userID int64
	log    *slog.Logger

	phase    Phase
	ticks    int
	failures int
	filter   Filter

	stop chan struct{}
	done chan struct{}
}

func newSession(e *Engine, u User) *session {
	return &session{
		engine: e,
		userID: u.ID,
		log:    e.log.With("user_id", u.ID),
		phase:  PhasePrimary,
		filter: u.Filter,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// stopped reports whether the session was asked to terminate.
func (s *session) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *session) interval() time.Duration {
	if s.phase == PhaseEscalated {
		return s.engine.opts.EscalatedInterval
	}
	return s.engine.opts.PrimaryInterval
}

// run waits between ticks and is cancellable only at those waits.
func (s *session) run() {
	defer s.engine.sessionDone(s)

	timer := time.NewTimer(s.interval())
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			s.log.Debug("search session stopped", "phase", s.phase)
			return
		case <-timer.C:
		}

		if s.tick() {
			return
		}
		timer.Reset(s.interval())
	}
}

// tick runs one scan and reports whether the session is over.
func (s *session) tick() bool {
	ctx := s.engine.ctx

	self, err := s.engine.store.GetUser(ctx, s.userID)
	if err != nil {
		return s.transient(err)
	}
	if self.Status != StatusSearching {
		s.log.Debug("search session ended", "status", self.Status, "phase", s.phase)
		return true
	}
	self.Filter = s.filter

	matched, err := s.scan(ctx, self)
	if err != nil {
		return s.transient(err)
	}
	if matched {
		return true
	}

	if s.phase == PhasePrimary {
		s.ticks++
		if s.ticks >= s.engine.opts.PrimaryTicks {
			if err := s.escalate(ctx); err != nil {
				if errors.Is(err, ErrDeliveryFailed) {
					s.engine.abortSearch(s.userID, err)
					return true
				}
				return s.transient(err)
			}
		}
	}
	s.failures = 0
	return false
}

// scan walks the searching users in listing order and claims the first
// compatible one it can get.
func (s *session) scan(ctx context.Context, self User) (bool, error) {
	opts := s.engine.opts
	token := ""
	for {
		page, next, err := s.engine.store.ListSearching(ctx, self.ID, token, opts.PageSize)
		if err != nil {
			return false, err
		}

		for _, cand := range page {
			if !Compatible(self, cand) {
				continue
			}
			if s.stopped() {
				return false, nil
			}

			p, err := s.engine.coord.TryClaim(ctx, self.ID, cand.ID)
			switch {
			case err == nil:
				s.log.Info("pairing formed", "candidate_id", cand.ID, "pairing_id", p.ID, "phase", s.phase)
				s.engine.paired(ctx, p, self.ID)
				return true, nil
			case errors.Is(err, ErrRaceLost):
				metrics.ClaimsDenied.WithLabelValues("candidate_taken").Inc()
				s.log.Debug("claim denied", "candidate_id", cand.ID)
				continue
			case errors.Is(err, ErrNotSearching):
				// Claimed as someone else's candidate or cancelled; the next
				// wait observes it.
				metrics.ClaimsDenied.WithLabelValues("self_unavailable").Inc()
				return false, nil
			default:
				return false, err
			}
		}

		if next == "" {
			return false, nil
		}
		token = next
	}
}

// escalate widens and persists the session's filter, once per session.
func (s *session) escalate(ctx context.Context) error {
	opts := s.engine.opts
	widened := Escalate(s.filter, opts.AgeStep, opts.AgeCeiling)

	if _, err := s.engine.store.UpdateFilter(ctx, s.userID, FilterUpdate{
		Gender: &widened.Gender,
		MaxAge: &widened.MaxAge,
		City:   &widened.City,
	}); err != nil {
		return err
	}

	s.filter = widened
	s.phase = PhaseEscalated
	metrics.Escalations.Inc()
	s.log.Info("search escalated", "max_age", widened.MaxAge)

	if err := s.engine.relay.Notify(ctx, s.userID, Notice{Kind: NoticeEscalated, Filter: widened}); err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}
	return nil
}

// transient counts a failed tick and gives up after MaxFailures in a row.
func (s *session) transient(err error) bool {
	s.failures++
	s.log.Warn("search tick failed", "err", err, "failures", s.failures, "phase", s.phase)
	if s.failures < s.engine.opts.MaxFailures {
		return false
	}
	s.engine.abortSearch(s.userID, err)
	return true
}
