package locker

import (
	"context"
	"sync"
	"time"
)

// Memory is the single-process locker used when Redis is not configured.
type Memory struct {
	mu       sync.Mutex
	locks    map[string]*memLock
	seen     map[string]time.Time
	dedupTTL time.Duration
	now      func() time.Time
}

// memLock is one lead's lock. refs counts the holder plus waiters; the entry
// is removed when it drops to zero.
type memLock struct {
	ch   chan struct{}
	refs int
}

// NewMemory builds an in-process locker and deduper.
func NewMemory(dedupTTL time.Duration) *Memory {
	return &Memory{
		locks:    map[string]*memLock{},
		seen:     map[string]time.Time{},
		dedupTTL: dedupTTL,
		now:      time.Now,
	}
}

func (m *Memory) acquire(contactID string) *memLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[contactID]
	if !ok {
		l = &memLock{ch: make(chan struct{}, 1)}
		m.locks[contactID] = l
	}
	l.refs++
	return l
}

func (m *Memory) drop(contactID string, l *memLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, contactID)
	}
}

func (m *Memory) releaser(contactID string, l *memLock) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			m.drop(contactID, l)
		})
	}
}

// Lock blocks until the lead is free or ctx is done.
func (m *Memory) Lock(ctx context.Context, contactID string) (func(), error) {
	l := m.acquire(contactID)
	select {
	case l.ch <- struct{}{}:
		return m.releaser(contactID, l), nil
	case <-ctx.Done():
		m.drop(contactID, l)
		return nil, ctx.Err()
	}
}

// TryLock takes the lock if it is free.
func (m *Memory) TryLock(_ context.Context, contactID string) (func(), bool, error) {
	l := m.acquire(contactID)
	select {
	case l.ch <- struct{}{}:
		return m.releaser(contactID, l), true, nil
	default:
		m.drop(contactID, l)
		return nil, false, nil
	}
}

// FirstSeen records messageID and reports whether it was new.
func (m *Memory) FirstSeen(_ context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return true, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, at := range m.seen {
		if now.Sub(at) > m.dedupTTL {
			delete(m.seen, id)
		}
	}
	if _, dup := m.seen[messageID]; dup {
		return false, nil
	}
	m.seen[messageID] = now
	return true, nil
}

// Forget removes messageID so the next delivery counts as new.
func (m *Memory) Forget(_ context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, messageID)
	return nil
}

func (m *Memory) lockEntries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
