package outreach

import (
	"sync"

	"github.com/google/uuid"
)

// SequenceLocks is a keyed mutex serializing in-process work per sequence.
// Entries are dropped once no goroutine holds or waits for them.
type SequenceLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sequenceLock
}

type sequenceLock struct {
	mu   sync.Mutex
	refs int
}

// NewSequenceLocks creates an empty lock set.
func NewSequenceLocks() *SequenceLocks {
	return &SequenceLocks{locks: make(map[uuid.UUID]*sequenceLock)}
}

// Lock blocks until the sequence is free and returns the matching unlock func.
func (l *SequenceLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &sequenceLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *SequenceLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
