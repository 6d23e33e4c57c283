package proto

import "encoding/json"

// Event names broadcast by the hub.
const (
	EventUserConnected    = "user-connected"
	EventAllUsers         = "all-users"
	EventUserJoined       = "user-joined"
	EventUserReconnected  = "user-reconnected"
	EventUserMoved        = "user-moved"
	EventUserDisconnected = "user-disconnected"

	EventTokenAdded        = "token-added"
	EventTokenRemoved      = "token-removed"
	EventTokenImageUpdated = "token-image-updated"
	EventTokenSizeUpdated  = "token-size-updated"

	EventAllCovers    = "all-covers"
	EventCoverAdded   = "cover-added"
	EventCoverUpdated = "cover-updated"
	EventCoverRemoved = "cover-removed"

	EventBattlemapList    = "battlemap:list"
	EventBattlemapActive  = "battlemap:active"
	EventBattlemapUpdated = "battlemap:updated"
	EventBattlemapDeleted = "battlemap:deleted"

	// EventAck answers an acknowledged command back to its issuer.
	EventAck = "ack"
)

type frame struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`
	Data any    `json:"data,omitempty"`
}

// EncodeEvent renders a named event frame for broadcast.
func EncodeEvent(eventType string, data any) ([]byte, error) {
	return json.Marshal(frame{Ver: Version, Type: eventType, Data: data})
}

// EncodeAck renders the direct reply to an acknowledged command.
func EncodeAck(seq uint64, data any) ([]byte, error) {
	return json.Marshal(frame{Ver: Version, Type: EventAck, Seq: seq, Data: data})
}
