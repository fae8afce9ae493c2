package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/anonchat/internal/matchmaking"
	"github.com/oggyb/anonchat/internal/utils/pagination"
)

// MemoryStore is a process-local matchmaking.Store. Every method runs under a
// single mutex, so pairing writes are atomic with respect to all readers.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[int64]*memUser
	pairings map[int64]matchmaking.Pairing
	now      func() time.Time
}

type memUser struct {
	user  matchmaking.User
	since int64 // unix millis
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]*memUser),
		pairings: make(map[int64]matchmaking.Pairing),
		now:      time.Now,
	}
}

var _ matchmaking.Store = (*MemoryStore)(nil)

func (s *MemoryStore) GetUser(ctx context.Context, id int64) (matchmaking.User, error) {
	if err := ctx.Err(); err != nil {
		return matchmaking.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure(id).user, nil
}

func (s *MemoryStore) ensure(id int64) *memUser {
	u, ok := s.users[id]
	if !ok {
		u = &memUser{user: matchmaking.User{
			ID:     id,
			Filter: matchmaking.DefaultFilter(),
			Status: matchmaking.StatusIdle,
		}}
		s.users[id] = u
	}
	return u
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, id int64, p matchmaking.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(id).user.Profile = p
	return nil
}

func (s *MemoryStore) UpdateFilter(ctx context.Context, id int64, upd matchmaking.FilterUpdate) (matchmaking.Filter, error) {
	if err := ctx.Err(); err != nil {
		return matchmaking.Filter{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.ensure(id)
	next, err := u.user.Filter.Apply(upd)
	if err != nil {
		return matchmaking.Filter{}, err
	}
	u.user.Filter = next
	return next, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id int64, status matchmaking.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatus(s.ensure(id), status)
	return nil
}

func (s *MemoryStore) setStatus(u *memUser, status matchmaking.Status) {
	u.user.Status = status
	u.since = 0
	u.user.SearchingSince = time.Time{}
	if status == matchmaking.StatusSearching {
		u.since = s.now().UnixMilli()
		u.user.SearchingSince = time.UnixMilli(u.since)
	}
}

// ListSearching orders by search start then id, like the relational store.
func (s *MemoryStore) ListSearching(ctx context.Context, exclude int64, pageToken string, limit int) ([]matchmaking.User, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	cursor, err := pagination.Decode(pageToken)
	if err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	matches := make([]*memUser, 0)
	for id, u := range s.users {
		if id == exclude || u.user.Status != matchmaking.StatusSearching {
			continue
		}
		if !cursor.IsZero() && !cursor.After(u.since, id) {
			continue
		}
		matches = append(matches, u)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].since != matches[j].since {
			return matches[i].since < matches[j].since
		}
		return matches[i].user.ID < matches[j].user.ID
	})

	var next string
	if len(matches) > limit {
		last := matches[limit-1]
		next, _ = pagination.Encode(pagination.Cursor{UserID: last.user.ID, SinceUnix: last.since})
		matches = matches[:limit]
	}
	out := make([]matchmaking.User, 0, len(matches))
	for _, u := range matches {
		out = append(out, u.user)
	}
	s.mu.RUnlock()

	return out, next, nil
}

func (s *MemoryStore) CreatePairing(ctx context.Context, a, b int64) (matchmaking.Pairing, error) {
	if err := ctx.Err(); err != nil {
		return matchmaking.Pairing{}, err
	}
	if a == b {
		return matchmaking.Pairing{}, matchmaking.ErrSelfClaim
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ua, ub := s.ensure(a), s.ensure(b)
	if ua.user.Status != matchmaking.StatusSearching || ub.user.Status != matchmaking.StatusSearching {
		return matchmaking.Pairing{}, matchmaking.ErrNotEligible
	}
	if _, ok := s.pairings[a]; ok {
		return matchmaking.Pairing{}, matchmaking.ErrNotEligible
	}
	if _, ok := s.pairings[b]; ok {
		return matchmaking.Pairing{}, matchmaking.ErrNotEligible
	}

	p := matchmaking.Pairing{
		ID:        uuid.NewString(),
		UserA:     a,
		UserB:     b,
		CreatedAt: s.now().UTC(),
	}
	s.pairings[a] = p
	s.pairings[b] = p
	s.setStatus(ua, matchmaking.StatusChatting)
	s.setStatus(ub, matchmaking.StatusChatting)
	return p, nil
}

func (s *MemoryStore) Companion(ctx context.Context, id int64) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pairings[id]
	if !ok {
		return 0, false, nil
	}
	return p.Other(id), true, nil
}

func (s *MemoryStore) DestroyPairing(ctx context.Context, id int64) (matchmaking.Pairing, bool, error) {
	if err := ctx.Err(); err != nil {
		return matchmaking.Pairing{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pairings[id]
	if !ok {
		return matchmaking.Pairing{}, false, nil
	}
	delete(s.pairings, p.UserA)
	delete(s.pairings, p.UserB)
	s.setStatus(s.ensure(p.UserA), matchmaking.StatusIdle)
	s.setStatus(s.ensure(p.UserB), matchmaking.StatusIdle)
	return p, true, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (matchmaking.Stats, error) {
	if err := ctx.Err(); err != nil {
		return matchmaking.Stats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st matchmaking.Stats
	for _, u := range s.users {
		if u.user.Status == matchmaking.StatusSearching {
			st.Searching++
		}
	}
	st.Pairings = int64(len(s.pairings) / 2)
	return st, nil
}
