package businessflow

import "sync"

// identityLocks serializes ingest work per identity key so that two
// concurrent batches cannot interleave ledger writes or alert evaluation
// for the same product.
type identityLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newIdentityLocks() *identityLocks {
	return &identityLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *identityLocks) lock(key string) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
}

func (l *identityLocks) unlock(key string) {
	l.mu.Lock()
	m := l.locks[key]
	l.mu.Unlock()
	if m != nil {
		m.Unlock()
	}
}
