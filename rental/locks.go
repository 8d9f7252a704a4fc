// locks.go - Identity-keyed mutexes.
//
// Every mutation reads current state, computes, and writes back. Two
// concurrent mutations touching the same customer or stock record would
// race on that read-modify-write, so the service serializes them behind a
// mutex keyed by record identity. Locks are never taken for more than one
// customer or one stock per operation, except shipment edits which may
// touch two stock records (acquired in sorted key order).
package rental

import (
	"sort"
	"sync"
)

type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

func (t *lockTable) get(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.locks[key]
	if !ok {
		m = &sync.Mutex{}
		t.locks[key] = m
	}
	return m
}

// Lock acquires the mutex for key and returns the unlock function.
func (t *lockTable) Lock(key string) func() {
	m := t.get(key)
	m.Lock()
	return m.Unlock
}

// LockAll acquires every key in sorted order (deadlock-free for multi-key
// operations) and returns one unlock function for all of them.
func (t *lockTable) LockAll(keys ...string) func() {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			uniq = append(uniq, k)
		}
	}
	sort.Strings(uniq)

	unlocks := make([]func(), 0, len(uniq))
	for _, k := range uniq {
		unlocks = append(unlocks, t.Lock(k))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

func customerKey(id string) string { return "customer/" + id }
func stockKey(id string) string    { return "stock/" + id }
