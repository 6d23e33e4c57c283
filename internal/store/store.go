// Package store defines the durable row surface backing the scene registry.
// The server treats it as a plain load/insert/update/delete interface; the
// in-memory scene stays authoritative and writes happen behind it.
package store

import "context"

// BattlemapRow mirrors the in-memory battlemap one to one. GridData is the
// opaque grid blob encoded as JSON text, empty when the map has no grid.
type BattlemapRow struct {
	ID          string
	Name        string
	MapPath     string
	GridScale   float64
	GridOffsetX float64
	GridOffsetY float64
	GridData    string
	CreatedAt   int64
	UpdatedAt   int64
}

// CoverRow carries its owning battlemap id; deleting the battlemap row
// cascades to its covers.
type CoverRow struct {
	ID          string
	BattlemapID string
	X           float64
	Y           float64
	Width       float64
	Height      float64
	Color       string
}

// Store is the narrow persistence contract the server depends on.
type Store interface {
	// Load returns every battlemap and cover in insertion order.
	Load(ctx context.Context) ([]BattlemapRow, []CoverRow, error)

	InsertBattlemap(ctx context.Context, row BattlemapRow) error
	UpdateBattlemap(ctx context.Context, row BattlemapRow) error
	DeleteBattlemap(ctx context.Context, id string) error

	InsertCover(ctx context.Context, row CoverRow) error
	UpdateCover(ctx context.Context, row CoverRow) error
	DeleteCover(ctx context.Context, id string) error
}
