package service

import (
	"context"
	"sync"

	"interviewhub/internal/errors"
)

// ConcurrencyManager hands out per-session locks. TryAcquire never waits: when
// the session is already held it returns an error matching ErrSessionLocked.
// The returned release func is safe to call more than once.
type ConcurrencyManager interface {
	TryAcquire(ctx context.Context, sessionID string) (release func(), err error)
}

// LocalLocks is a process-local ConcurrencyManager.
type LocalLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocks() *LocalLocks {
	return &LocalLocks{held: map[string]struct{}{}}
}

func (l *LocalLocks) TryAcquire(_ context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[sessionID]; ok {
		return nil, errors.Wrapf(ErrSessionLocked, "session %s", sessionID)
	}
	l.held[sessionID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, sessionID)
			l.mu.Unlock()
		})
	}, nil
}

// Held reports whether sessionID is currently locked.
func (l *LocalLocks) Held(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[sessionID]
	return ok
}
