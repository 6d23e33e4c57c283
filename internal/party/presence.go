package party

import "math"

// Size buckets a token into one of the footprint classes the clients render.
type Size string

const (
	SizeTiny       Size = "tiny"
	SizeSmall      Size = "small"
	SizeMedium     Size = "medium"
	SizeLarge      Size = "large"
	SizeHuge       Size = "huge"
	SizeGargantuan Size = "gargantuan"
)

// ParseSize maps a client-supplied size string onto the enum, reporting
// whether the value was recognised.
func ParseSize(raw string) (Size, bool) {
	switch Size(raw) {
	case SizeTiny, SizeSmall, SizeMedium, SizeLarge, SizeHuge, SizeGargantuan:
		return Size(raw), true
	}
	return SizeMedium, false
}

// Role distinguishes the shared screen from player connections.
type Role string

const (
	RoleDisplay     Role = "display"
	RoleParticipant Role = "participant"
)

// ParseRole maps a client-supplied role string onto the enum. Anything that
// is not the display role is treated as a participant.
func ParseRole(raw string) Role {
	if Role(raw) == RoleDisplay {
		return RoleDisplay
	}
	return RoleParticipant
}

// Position locates a token on the map as percentages of its dimensions.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultPosition centers a freshly joined token on the map.
var DefaultPosition = Position{X: 50, Y: 50}

// ClampPosition forces both axes into [0,100]. Non-finite values collapse
// to zero rather than poisoning the shared state.
func ClampPosition(p Position) Position {
	p.X = clampPercent(p.X)
	p.Y = clampPercent(p.Y)
	return p
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Presence is the live record of one token: either a connected participant
// or a freestanding token spawned by the display. Freestanding entries keep
// an empty ConnectionID and survive every disconnect until removed.
type Presence struct {
	ConnectionID      string   `json:"-"`
	PersistentID      string   `json:"id"`
	Color             string   `json:"color"`
	Position          Position `json:"position"`
	ImageSrc          string   `json:"imageSrc,omitempty"`
	Size              Size     `json:"size"`
	Role              Role     `json:"role"`
	MutationAuthority bool     `json:"-"`
	Suppress          bool     `json:"-"`
}
