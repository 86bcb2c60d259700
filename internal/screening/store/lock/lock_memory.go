package lock

import (
	"context"
	"sync"

	"amora/pkg/platform/sentinel"

	id "amora/pkg/domain"
)

// MemoryLocker is the in-process lease used by tests and single-node runs.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[id.UserID]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[id.UserID]struct{})}
}

func (l *MemoryLocker) Acquire(_ context.Context, userID id.UserID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[userID]; taken {
		return nil, sentinel.ErrConflict
	}
	l.held[userID] = struct{}{}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, userID)
	}
	return release, nil
}
