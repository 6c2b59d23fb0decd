package merge

import "sync"

// lockTable serializes merges per destination voter within the process.
// Concurrent merges into the same winner would race on the scalar union and
// the dedupe queries; everything else is idempotent.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

// acquire blocks until the lock for key is held and returns the release
// function.
func (t *lockTable) acquire(key string) func() {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}
