package circulation

import "sync"

// patronLocks serializes decide-then-persist sequences per patron.
// Evaluations for different patrons run fully in parallel; two concurrent
// requests for the same patron must not both read history before either
// writes, or a patron could overshoot their allowances.
type patronLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPatronLocks() *patronLocks {
	return &patronLocks{locks: make(map[string]*sync.Mutex)}
}

// lockFor returns the mutex for the given patron, creating it on first use.
// Locks are never removed; the per-patron footprint is one mutex.
func (p *patronLocks) lockFor(patronID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, exists := p.locks[patronID]
	if !exists {
		lock = &sync.Mutex{}
		p.locks[patronID] = lock
	}

	return lock
}
