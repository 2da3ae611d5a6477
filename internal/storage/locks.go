package storage

import (
	"context"
	"sync"
)

// GroupLocks is an in-process mutex per group ID. Entries are dropped once
// nobody holds or waits for them.
type GroupLocks struct {
	mu    sync.Mutex
	locks map[string]*groupLock
}

type groupLock struct {
	sem  chan struct{}
	refs int
}

// Acquire blocks until the group's lock is held or ctx is done.
// The returned function releases the lock.
func (l *GroupLocks) Acquire(ctx context.Context, groupID string) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*groupLock)
	}
	gl, ok := l.locks[groupID]
	if !ok {
		gl = &groupLock{sem: make(chan struct{}, 1)}
		l.locks[groupID] = gl
	}
	gl.refs++
	l.mu.Unlock()

	select {
	case gl.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-gl.sem
				l.release(groupID, gl)
			})
		}, nil
	case <-ctx.Done():
		l.release(groupID, gl)
		return nil, ctx.Err()
	}
}

func (l *GroupLocks) release(groupID string, gl *groupLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	gl.refs--
	if gl.refs == 0 {
		delete(l.locks, groupID)
	}
}

// held returns the number of groups with a holder or waiter.
func (l *GroupLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
