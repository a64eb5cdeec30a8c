package gallery

import "sync"

// Gallery is the in-memory set of known subjects for a capture session.
// Reload replaces the whole set atomically; readers always see either the old
// or the new set, never a mix.
type Gallery struct {
	mu      sync.RWMutex
	entries []Entry
}

func New(entries []Entry) *Gallery {
	g := &Gallery{}
	g.Replace(entries)
	return g
}

// Replace swaps in a new entry set.
func (g *Gallery) Replace(entries []Entry) {
	snapshot := make([]Entry, len(entries))
	copy(snapshot, entries)
	g.mu.Lock()
	g.entries = snapshot
	g.mu.Unlock()
}

// Entries returns a copy of the current entry set.
func (g *Gallery) Entries() []Entry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}
