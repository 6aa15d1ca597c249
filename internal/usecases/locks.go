package usecases

import "sync"

// TargetLocks serializes deployments per logical target, e.g. a repository path.
// Events for different targets proceed in parallel.
type TargetLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTargetLocks creates an empty lock table.
func NewTargetLocks() *TargetLocks {
	return &TargetLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until target is free and returns the matching unlock function.
func (t *TargetLocks) Lock(target string) func() {
	t.mu.Lock()
	l, ok := t.locks[target]
	if !ok {
		l = &sync.Mutex{}
		t.locks[target] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}
