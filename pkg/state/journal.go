package state

import "sync"

// Journal records undo operations for in-flight state changes. Components that
// take part in a call register an undo func for every mutation they make; the
// executor reverts to a snapshot when the call fails.
type Journal struct {
	mu      sync.Mutex
	entries []func()
}

// NewJournal returns an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Append registers an undo operation.
func (j *Journal) Append(undo func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries, undo)
}

// Snapshot returns an identifier for the current journal position.
func (j *Journal) Snapshot() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	return len(j.entries)
}

// RevertToSnapshot undoes every change recorded after the snapshot, newest first.
func (j *Journal) RevertToSnapshot(id int) {
	j.mu.Lock()
	pending := j.entries[id:]
	j.entries = j.entries[:id]
	j.mu.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		pending[i]()
	}
}

// Commit drops all undo operations. Only the outermost frame commits.
func (j *Journal) Commit() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = nil
}

// Len returns the number of pending undo operations.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	return len(j.entries)
}
