package scene

import (
	"math"

	"battlemat/server/internal/store"
)

// DefaultCoverColor is the mid-gray applied when a client omits the color.
const DefaultCoverColor = "#808080"

// Cover is an obstruction rectangle over a battlemap, expressed in
// percentages of the map dimensions.
type Cover struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  string  `json:"color"`
}

// CoverPatch carries a partial cover update; nil fields keep their current
// value.
type CoverPatch struct {
	X      *float64
	Y      *float64
	Width  *float64
	Height *float64
	Color  *string
}

// SanitizeCover clamps the rectangle so it always fits the map: width and
// height into [0,100], then the origin so x+width and y+height stay within
// 100. Client geometry is never trusted as-is.
func SanitizeCover(c Cover) Cover {
	c.Width = clampRange(c.Width, 0, 100)
	c.Height = clampRange(c.Height, 0, 100)
	c.X = clampRange(c.X, 0, 100-c.Width)
	c.Y = clampRange(c.Y, 0, 100-c.Height)
	if c.Color == "" {
		c.Color = DefaultCoverColor
	}
	return c
}

// Apply merges the patch into the cover and re-clamps, so changing only the
// width still respects the existing origin.
func (c Cover) Apply(patch CoverPatch) Cover {
	if patch.X != nil {
		c.X = *patch.X
	}
	if patch.Y != nil {
		c.Y = *patch.Y
	}
	if patch.Width != nil {
		c.Width = *patch.Width
	}
	if patch.Height != nil {
		c.Height = *patch.Height
	}
	if patch.Color != nil && *patch.Color != "" {
		c.Color = *patch.Color
	}
	return SanitizeCover(c)
}

// Row renders the cover as its durable representation.
func (c Cover) Row(battlemapID string) store.CoverRow {
	return store.CoverRow{
		ID:          c.ID,
		BattlemapID: battlemapID,
		X:           c.X,
		Y:           c.Y,
		Width:       c.Width,
		Height:      c.Height,
		Color:       c.Color,
	}
}

func clampRange(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
