package party

import "time"

// Benched holds the visible state a token had when its connection dropped,
// waiting for the owner to return with the same persistent id.
type Benched struct {
	Color          string
	Position       Position
	ImageSrc       string
	Size           Size
	DisconnectedAt time.Time
}

// Ledger is the resurrection cache: at most one benched entry per persistent
// id. Entries are consumed by the next identify carrying the id or purged by
// an explicit removal; there is no timed eviction, so the ledger grows until
// the process restarts.
type Ledger struct {
	entries map[string]Benched
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]Benched)}
}

// Bench records the disconnecting presence, overwriting any stale entry for
// the same persistent id.
func (l *Ledger) Bench(p Presence, now time.Time) {
	if p.PersistentID == "" {
		return
	}
	l.entries[p.PersistentID] = Benched{
		Color:          p.Color,
		Position:       p.Position,
		ImageSrc:       p.ImageSrc,
		Size:           p.Size,
		DisconnectedAt: now,
	}
}

// Claim removes and returns the benched entry for a persistent id. The entry
// is gone after a successful claim, so a second reconnect with the same id
// starts fresh.
func (l *Ledger) Claim(persistentID string) (Benched, bool) {
	entry, ok := l.entries[persistentID]
	if ok {
		delete(l.entries, persistentID)
	}
	return entry, ok
}

// Purge drops the benched entry for a persistent id, if any.
func (l *Ledger) Purge(persistentID string) bool {
	if _, ok := l.entries[persistentID]; !ok {
		return false
	}
	delete(l.entries, persistentID)
	return true
}

// Len reports the number of benched tokens.
func (l *Ledger) Len() int {
	return len(l.entries)
}
