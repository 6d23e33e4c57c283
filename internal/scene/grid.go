package scene

import (
	"encoding/json"
	"math"
)

// GridData is the opaque result of the display client's grid-line inference.
// The server stores and forwards it wholesale; it never interprets the line
// positions beyond the sanity checks below.
type GridData struct {
	XLines []float64 `json:"xLines"`
	YLines []float64 `json:"yLines"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
}

// DefaultGridData is the grid a battlemap falls back to whenever the client
// payload is missing or unusable: no inferred lines, zero image dimensions.
func DefaultGridData() GridData {
	return GridData{XLines: []float64{}, YLines: []float64{}}
}

// SanitizeGridData validates a replacement grid. The line arrays must be
// both empty or both populated, every number finite, and the image
// dimensions non-negative; anything else collapses to the default grid.
func SanitizeGridData(g GridData) GridData {
	if (len(g.XLines) == 0) != (len(g.YLines) == 0) {
		return DefaultGridData()
	}
	if !isFinite(g.Width) || !isFinite(g.Height) || g.Width < 0 || g.Height < 0 {
		return DefaultGridData()
	}
	for _, v := range g.XLines {
		if !isFinite(v) {
			return DefaultGridData()
		}
	}
	for _, v := range g.YLines {
		if !isFinite(v) {
			return DefaultGridData()
		}
	}
	if g.XLines == nil {
		g.XLines = []float64{}
	}
	if g.YLines == nil {
		g.YLines = []float64{}
	}
	return g
}

// DecodeGridData parses a raw JSON grid payload, falling back to the default
// grid when the payload is empty or malformed.
func DecodeGridData(raw []byte) GridData {
	if len(raw) == 0 {
		return DefaultGridData()
	}
	var g GridData
	if err := json.Unmarshal(raw, &g); err != nil {
		return DefaultGridData()
	}
	return SanitizeGridData(g)
}

// Encode renders the grid as JSON text for the durable row. The default grid
// encodes as the empty string so unset grids stay compact in storage.
func (g GridData) Encode() string {
	if len(g.XLines) == 0 && len(g.YLines) == 0 && g.Width == 0 && g.Height == 0 {
		return ""
	}
	data, err := json.Marshal(g)
	if err != nil {
		return ""
	}
	return string(data)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
