package scene

import "battlemat/server/internal/store"

// Battlemap owns a map image reference, its grid calibration, and the covers
// drawn over it.
type Battlemap struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	MapPath     string           `json:"mapPath,omitempty"`
	GridScale   float64          `json:"gridScale"`
	GridOffsetX float64          `json:"gridOffsetX"`
	GridOffsetY float64          `json:"gridOffsetY"`
	GridData    GridData         `json:"gridData"`
	Covers      map[string]Cover `json:"covers"`

	createdAt int64
	updatedAt int64
}

// Snapshot copies the battlemap, including its cover map, for broadcasting.
func (b *Battlemap) Snapshot() Battlemap {
	out := *b
	out.Covers = make(map[string]Cover, len(b.Covers))
	for id, c := range b.Covers {
		out.Covers[id] = c
	}
	return out
}

// CoverList copies the covers into a slice for the all-covers event.
func (b *Battlemap) CoverList() []Cover {
	out := make([]Cover, 0, len(b.Covers))
	for _, c := range b.Covers {
		out = append(out, c)
	}
	return out
}

// Row renders the battlemap as its durable representation. Covers persist as
// their own rows.
func (b *Battlemap) Row() store.BattlemapRow {
	return store.BattlemapRow{
		ID:          b.ID,
		Name:        b.Name,
		MapPath:     b.MapPath,
		GridScale:   b.GridScale,
		GridOffsetX: b.GridOffsetX,
		GridOffsetY: b.GridOffsetY,
		GridData:    b.GridData.Encode(),
		CreatedAt:   b.createdAt,
		UpdatedAt:   b.updatedAt,
	}
}
