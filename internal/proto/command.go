// Package proto defines the wire protocol: a versioned envelope carrying a
// closed tagged union of client commands inbound, and named events outbound.
package proto

import "encoding/json"

// Version stamps every frame in both directions.
const Version = 1

// CommandType names one inbound command.
type CommandType string

const (
	CmdIdentify         CommandType = "identify"
	CmdPositionUpdate   CommandType = "position-update"
	CmdTokenImageUpdate CommandType = "token-image-update"
	CmdTokenSizeUpdate  CommandType = "token-size-update"
	CmdAddToken         CommandType = "add-token"
	CmdRemoveToken      CommandType = "remove-token"

	CmdAddCover    CommandType = "add-cover"
	CmdUpdateCover CommandType = "update-cover"
	CmdRemoveCover CommandType = "remove-cover"

	CmdBattlemapCreate    CommandType = "battlemap:create"
	CmdBattlemapRename    CommandType = "battlemap:rename"
	CmdBattlemapMapPath   CommandType = "battlemap:update-map-path"
	CmdBattlemapSettings  CommandType = "battlemap:update-settings"
	CmdBattlemapGridData  CommandType = "battlemap:update-grid-data"
	CmdBattlemapDelete    CommandType = "battlemap:delete"
	CmdBattlemapSetActive CommandType = "battlemap:set-active"
	CmdBattlemapGet       CommandType = "battlemap:get"
	CmdBattlemapList      CommandType = "battlemap:list"
)

// Point is a map position in percentages of the map dimensions.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IdentifyCommand is the one-time handshake naming the connection.
type IdentifyCommand struct {
	PersistentID      string `json:"persistentId,omitempty"`
	Role              string `json:"role,omitempty"`
	MutationAuthority *bool  `json:"mutationAuthority,omitempty"`
	SuppressPresence  bool   `json:"suppressPresence,omitempty"`
}

// PositionCommand moves a token.
type PositionCommand struct {
	TokenID  string `json:"tokenId" jsonschema:"required"`
	Position Point  `json:"position"`
}

// TokenImageCommand swaps a token's artwork URL. An empty string clears it.
type TokenImageCommand struct {
	TokenID  string `json:"tokenId" jsonschema:"required"`
	ImageSrc string `json:"imageSrc"`
}

// TokenSizeCommand changes a token's footprint class.
type TokenSizeCommand struct {
	TokenID string `json:"tokenId" jsonschema:"required"`
	Size    string `json:"size" jsonschema:"required"`
}

// AddTokenCommand spawns a freestanding token with no backing connection.
type AddTokenCommand struct {
	Color    string `json:"color,omitempty"`
	Position Point  `json:"position"`
	Size     string `json:"size,omitempty"`
	ImageSrc string `json:"imageSrc,omitempty"`
}

// RemoveTokenCommand deletes a token everywhere: roster, resurrection
// ledger, and every client's view.
type RemoveTokenCommand struct {
	PersistentID string `json:"persistentId" jsonschema:"required"`
}

// AddCoverCommand draws an obstruction rectangle. BattlemapID defaults to
// the active battlemap when omitted.
type AddCoverCommand struct {
	BattlemapID string  `json:"battlemapId,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Color       string  `json:"color,omitempty"`
}

// UpdateCoverCommand patches a subset of a cover's fields.
type UpdateCoverCommand struct {
	BattlemapID string   `json:"battlemapId,omitempty"`
	CoverID     string   `json:"coverId" jsonschema:"required"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Color       *string  `json:"color,omitempty"`
}

// RemoveCoverCommand deletes an obstruction rectangle.
type RemoveCoverCommand struct {
	BattlemapID string `json:"battlemapId,omitempty"`
	CoverID     string `json:"coverId" jsonschema:"required"`
}

// BattlemapCreateCommand adds a battlemap to the scene.
type BattlemapCreateCommand struct {
	Name    string `json:"name" jsonschema:"required"`
	MapPath string `json:"mapPath,omitempty"`
}

// BattlemapRenameCommand changes a battlemap's display name.
type BattlemapRenameCommand struct {
	BattlemapID string `json:"battlemapId" jsonschema:"required"`
	Name        string `json:"name" jsonschema:"required"`
}

// BattlemapMapPathCommand swaps the map image URL.
type BattlemapMapPathCommand struct {
	BattlemapID string `json:"battlemapId" jsonschema:"required"`
	MapPath     string `json:"mapPath"`
}

// BattlemapSettingsCommand patches a subset of the grid calibration.
type BattlemapSettingsCommand struct {
	BattlemapID string   `json:"battlemapId" jsonschema:"required"`
	GridScale   *float64 `json:"gridScale,omitempty"`
	GridOffsetX *float64 `json:"gridOffsetX,omitempty"`
	GridOffsetY *float64 `json:"gridOffsetY,omitempty"`
}

// BattlemapGridDataCommand replaces the inferred grid wholesale. The server
// stores the payload verbatim after sanity checks.
type BattlemapGridDataCommand struct {
	BattlemapID string          `json:"battlemapId" jsonschema:"required"`
	GridData    json.RawMessage `json:"gridData"`
}

// BattlemapTargetCommand names a battlemap for delete, set-active, and get.
type BattlemapTargetCommand struct {
	BattlemapID string `json:"battlemapId" jsonschema:"required"`
}

// Command is the decoded tagged union. Exactly one payload pointer is
// non-nil, matching Type; battlemap:list carries no payload.
type Command struct {
	Type CommandType
	Seq  uint64

	Identify    *IdentifyCommand
	Position    *PositionCommand
	TokenImage  *TokenImageCommand
	TokenSize   *TokenSizeCommand
	AddToken    *AddTokenCommand
	RemoveToken *RemoveTokenCommand

	AddCover    *AddCoverCommand
	UpdateCover *UpdateCoverCommand
	RemoveCover *RemoveCoverCommand

	Create   *BattlemapCreateCommand
	Rename   *BattlemapRenameCommand
	MapPath  *BattlemapMapPathCommand
	Settings *BattlemapSettingsCommand
	GridData *BattlemapGridDataCommand
	Target   *BattlemapTargetCommand
}
