package ndarray

import (
	"fmt"
	"sort"
	"sync"
	"weak"
)

// Tracker records every wrapper that still owns a foreign reference.
// Entries hold weak pointers, so tracked wrappers can still be collected.
type Tracker struct {
	mu      sync.Mutex
	entries map[uint64]entry
}

type entry struct {
	ptr  weak.Pointer[Array]
	desc string
}

// Leak describes a wrapper whose reference was never freed.
type Leak struct {
	ID   uint64
	Desc string
	// Collected is true when the wrapper itself is gone, so the reference
	// can no longer be freed from the host.
	Collected bool
}

func (l Leak) String() string {
	if l.Collected {
		return fmt.Sprintf("%s (collected)", l.Desc)
	}
	return l.Desc
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[uint64]entry)}
}

func (t *Tracker) track(a *Array) {
	t.mu.Lock()
	t.entries[a.id] = entry{ptr: weak.Make(a), desc: a.String()}
	t.mu.Unlock()
}

func (t *Tracker) untrack(id uint64) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}

// Len returns the number of wrappers still holding a reference.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Live returns the wrappers that are still reachable and unfreed.
func (t *Tracker) Live() []*Array {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Array, 0, len(t.entries))
	for _, e := range t.entries {
		if a := e.ptr.Value(); a != nil {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Leaks reports every unfreed wrapper ordered by ID.
func (t *Tracker) Leaks() []Leak {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Leak, 0, len(t.entries))
	for id, e := range t.entries {
		out = append(out, Leak{ID: id, Desc: e.desc, Collected: e.ptr.Value() == nil})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
