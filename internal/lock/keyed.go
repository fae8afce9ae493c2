package lock

import (
	"context"
	"sync"

	"github.com/oggyb/anonchat/internal/matchmaking"
)

// KeyedMutex is an in-process matchmaking.Locker: one mutex per user id,
// created on first use and dropped once nobody holds or waits for it.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

type entry struct {
	ch   chan struct{} // buffered(1); holding the token means holding the lock
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[int64]*entry)}
}

var _ matchmaking.Locker = (*KeyedMutex)(nil)

// Lock blocks until id is free or ctx is done.
func (k *KeyedMutex) Lock(ctx context.Context, id int64) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[id]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(id, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(id, e)
		})
	}, nil
}

func (k *KeyedMutex) release(id int64, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, id)
	}
}

// Len reports how many ids currently have holders or waiters.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
