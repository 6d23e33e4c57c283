package party

// Roster tracks every visible token keyed by persistent id, preserving join
// order for snapshots. It is owned by the hub goroutine and performs no
// locking of its own.
type Roster struct {
	entries map[string]*Presence
	order   []string
}

// NewRoster constructs an empty roster.
func NewRoster() *Roster {
	return &Roster{entries: make(map[string]*Presence)}
}

// Add inserts a presence, replacing any entry sharing its persistent id.
func (r *Roster) Add(p *Presence) {
	if p == nil || p.PersistentID == "" {
		return
	}
	if _, ok := r.entries[p.PersistentID]; !ok {
		r.order = append(r.order, p.PersistentID)
	}
	r.entries[p.PersistentID] = p
}

// Get returns the live entry for a persistent id.
func (r *Roster) Get(persistentID string) (*Presence, bool) {
	p, ok := r.entries[persistentID]
	return p, ok
}

// Remove deletes and returns the entry for a persistent id.
func (r *Roster) Remove(persistentID string) (*Presence, bool) {
	p, ok := r.entries[persistentID]
	if !ok {
		return nil, false
	}
	delete(r.entries, persistentID)
	for i, id := range r.order {
		if id == persistentID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return p, true
}

// Len reports the number of visible tokens.
func (r *Roster) Len() int {
	return len(r.entries)
}

// Snapshot copies every entry in join order for broadcasting.
func (r *Roster) Snapshot() []Presence {
	out := make([]Presence, 0, len(r.entries))
	for _, id := range r.order {
		if p, ok := r.entries[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}
