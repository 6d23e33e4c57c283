package scene

import (
	"time"

	"github.com/google/uuid"

	"battlemat/server/internal/store"
)

// Outcome reports the result of a registry mutation. Authority is checked
// upstream by the hub, so the registry only distinguishes success from a
// missing target.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
)

// DefaultBattlemapName labels the battlemap seeded into an empty store.
const DefaultBattlemapName = "Untitled battlemap"

// Registry is the canonical in-memory scene: every battlemap in insertion
// order plus the active selection. It is mutated only from the hub goroutine
// and performs no locking of its own.
type Registry struct {
	maps      map[string]*Battlemap
	order     []string
	activeID  string
	defaultID string

	newID func() string
	now   func() time.Time
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		maps:  make(map[string]*Battlemap),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// FromRows rebuilds the registry from durable rows. The first battlemap in
// row order becomes both the active and the default map; covers referencing
// unknown battlemaps are dropped.
func FromRows(maps []store.BattlemapRow, covers []store.CoverRow) *Registry {
	r := NewRegistry()
	for _, row := range maps {
		bm := &Battlemap{
			ID:          row.ID,
			Name:        row.Name,
			MapPath:     row.MapPath,
			GridScale:   row.GridScale,
			GridOffsetX: row.GridOffsetX,
			GridOffsetY: row.GridOffsetY,
			GridData:    DecodeGridData([]byte(row.GridData)),
			Covers:      make(map[string]Cover),
			createdAt:   row.CreatedAt,
			updatedAt:   row.UpdatedAt,
		}
		if bm.GridScale <= 0 || !isFinite(bm.GridScale) {
			bm.GridScale = 1
		}
		r.maps[bm.ID] = bm
		r.order = append(r.order, bm.ID)
	}
	for _, row := range covers {
		bm, ok := r.maps[row.BattlemapID]
		if !ok {
			continue
		}
		bm.Covers[row.ID] = SanitizeCover(Cover{
			ID:     row.ID,
			X:      row.X,
			Y:      row.Y,
			Width:  row.Width,
			Height: row.Height,
			Color:  row.Color,
		})
	}
	if len(r.order) > 0 {
		r.activeID = r.order[0]
		r.defaultID = r.order[0]
	}
	return r
}

// SeedRow builds the battlemap row inserted when the durable store is empty.
func SeedRow(id string, now time.Time) store.BattlemapRow {
	ts := now.UnixMilli()
	return store.BattlemapRow{
		ID:        id,
		Name:      DefaultBattlemapName,
		GridScale: 1,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// CreateBattlemap appends a battlemap with default grid settings and no
// covers. The first battlemap created into an empty registry becomes active
// and default.
func (r *Registry) CreateBattlemap(name, mapPath string) (*Battlemap, bool) {
	ts := r.now().UnixMilli()
	bm := &Battlemap{
		ID:        r.newID(),
		Name:      name,
		MapPath:   mapPath,
		GridScale: 1,
		GridData:  DefaultGridData(),
		Covers:    make(map[string]Cover),
		createdAt: ts,
		updatedAt: ts,
	}
	r.maps[bm.ID] = bm
	r.order = append(r.order, bm.ID)

	activated := false
	if r.activeID == "" {
		r.activeID = bm.ID
		activated = true
	}
	if r.defaultID == "" {
		r.defaultID = bm.ID
	}
	return bm, activated
}

// RenameBattlemap updates the display name.
func (r *Registry) RenameBattlemap(id, name string) (*Battlemap, Outcome) {
	bm, ok := r.maps[id]
	if !ok {
		return nil, OutcomeNotFound
	}
	bm.Name = name
	bm.updatedAt = r.now().UnixMilli()
	return bm, OutcomeOK
}

// SetMapPath swaps the map image and resets the grid, since a new image
// invalidates the inferred lines.
func (r *Registry) SetMapPath(id, mapPath string) (*Battlemap, Outcome) {
	bm, ok := r.maps[id]
	if !ok {
		return nil, OutcomeNotFound
	}
	bm.MapPath = mapPath
	bm.GridData = DefaultGridData()
	bm.updatedAt = r.now().UnixMilli()
	return bm, OutcomeOK
}

// SettingsPatch carries a partial grid-calibration update; nil fields keep
// their current value.
type SettingsPatch struct {
	GridScale   *float64
	GridOffsetX *float64
	GridOffsetY *float64
}

// UpdateSettings merges the patch. Non-finite values and non-positive scales
// are ignored rather than rejected.
func (r *Registry) UpdateSettings(id string, patch SettingsPatch) (*Battlemap, Outcome) {
	bm, ok := r.maps[id]
	if !ok {
		return nil, OutcomeNotFound
	}
	if patch.GridScale != nil && isFinite(*patch.GridScale) && *patch.GridScale > 0 {
		bm.GridScale = *patch.GridScale
	}
	if patch.GridOffsetX != nil && isFinite(*patch.GridOffsetX) {
		bm.GridOffsetX = *patch.GridOffsetX
	}
	if patch.GridOffsetY != nil && isFinite(*patch.GridOffsetY) {
		bm.GridOffsetY = *patch.GridOffsetY
	}
	bm.updatedAt = r.now().UnixMilli()
	return bm, OutcomeOK
}

// SetGridData replaces the grid wholesale after sanitizing it.
func (r *Registry) SetGridData(id string, grid GridData) (*Battlemap, Outcome) {
	bm, ok := r.maps[id]
	if !ok {
		return nil, OutcomeNotFound
	}
	bm.GridData = SanitizeGridData(grid)
	bm.updatedAt = r.now().UnixMilli()
	return bm, OutcomeOK
}

// DeleteBattlemap removes a battlemap and all its covers. When the active
// map dies the selection falls back to the default map if it survives, else
// the first remaining map, else nothing.
func (r *Registry) DeleteBattlemap(id string) (activeChanged bool, outcome Outcome) {
	if _, ok := r.maps[id]; !ok {
		return false, OutcomeNotFound
	}
	delete(r.maps, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.defaultID == id {
		r.defaultID = ""
		if len(r.order) > 0 {
			r.defaultID = r.order[0]
		}
	}
	if r.activeID == id {
		r.activeID = r.defaultID
		if r.activeID == "" && len(r.order) > 0 {
			r.activeID = r.order[0]
		}
		activeChanged = true
	}
	return activeChanged, OutcomeOK
}

// SetActive switches the active battlemap, reporting whether anything
// changed so callers can suppress redundant broadcasts.
func (r *Registry) SetActive(id string) (changed bool, outcome Outcome) {
	if _, ok := r.maps[id]; !ok {
		return false, OutcomeNotFound
	}
	if r.activeID == id {
		return false, OutcomeOK
	}
	r.activeID = id
	return true, OutcomeOK
}

// AddCover attaches a sanitized cover to a battlemap, assigning it a fresh
// id.
func (r *Registry) AddCover(battlemapID string, c Cover) (Cover, Outcome) {
	bm, ok := r.maps[battlemapID]
	if !ok {
		return Cover{}, OutcomeNotFound
	}
	c.ID = r.newID()
	c = SanitizeCover(c)
	bm.Covers[c.ID] = c
	bm.updatedAt = r.now().UnixMilli()
	return c, OutcomeOK
}

// UpdateCover merges a partial update into an existing cover and re-clamps.
func (r *Registry) UpdateCover(battlemapID, coverID string, patch CoverPatch) (Cover, Outcome) {
	bm, ok := r.maps[battlemapID]
	if !ok {
		return Cover{}, OutcomeNotFound
	}
	existing, ok := bm.Covers[coverID]
	if !ok {
		return Cover{}, OutcomeNotFound
	}
	updated := existing.Apply(patch)
	bm.Covers[coverID] = updated
	bm.updatedAt = r.now().UnixMilli()
	return updated, OutcomeOK
}

// RemoveCover deletes a cover from a battlemap.
func (r *Registry) RemoveCover(battlemapID, coverID string) Outcome {
	bm, ok := r.maps[battlemapID]
	if !ok {
		return OutcomeNotFound
	}
	if _, ok := bm.Covers[coverID]; !ok {
		return OutcomeNotFound
	}
	delete(bm.Covers, coverID)
	bm.updatedAt = r.now().UnixMilli()
	return OutcomeOK
}

// Get returns the battlemap for an id.
func (r *Registry) Get(id string) (*Battlemap, bool) {
	bm, ok := r.maps[id]
	return bm, ok
}

// Active returns the active battlemap, if any exist.
func (r *Registry) Active() (*Battlemap, bool) {
	if r.activeID == "" {
		return nil, false
	}
	return r.Get(r.activeID)
}

// ActiveID returns the active battlemap id, empty when no maps exist.
func (r *Registry) ActiveID() string {
	return r.activeID
}

// List copies every battlemap in insertion order.
func (r *Registry) List() []Battlemap {
	out := make([]Battlemap, 0, len(r.order))
	for _, id := range r.order {
		if bm, ok := r.maps[id]; ok {
			out = append(out, bm.Snapshot())
		}
	}
	return out
}

// Len reports the number of battlemaps.
func (r *Registry) Len() int {
	return len(r.maps)
}
