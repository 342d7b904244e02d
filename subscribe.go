package tokentree

import (
	"slices"
	"sync"
)

type listenerEntry struct {
	id uint64
	fn Listener
}

// listenerRegistry keeps listeners in registration order.
type listenerRegistry struct {
	mu      sync.Mutex
	nextID  uint64
	entries []listenerEntry
}

func (r *listenerRegistry) add(fn Listener) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.entries = append(r.entries, listenerEntry{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *listenerRegistry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, entry := range r.entries {
		if entry.id == id {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return
		}
	}
}

func (r *listenerRegistry) list() []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Listener, len(r.entries))
	for i, entry := range r.entries {
		out[i] = entry.fn
	}
	return out
}

func (r *listenerRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Subscribe registers fn to run after every non-empty commit, synchronously
// and in registration order. The returned function unregisters fn and is safe
// to call more than once. Listeners removed while a commit is being
// delivered still receive that commit.
func (s *Store[M]) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	return s.listeners.add(fn)
}

// Subscribers returns the number of registered listeners.
func (s *Store[M]) Subscribers() int {
	return s.listeners.len()
}

func (s *Store[M]) notify(commit Commit) {
	for _, fn := range s.listeners.list() {
		fn(Commit{Version: commit.Version, Changes: slices.Clone(commit.Changes)})
	}
}
