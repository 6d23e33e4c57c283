package server

import (
	"go.uber.org/zap"

	"battlemat/server/internal/party"
	"battlemat/server/internal/proto"
	"battlemat/server/internal/scene"
)

// Error codes carried in acknowledgements. These are the wire strings; the
// hub never exposes Go errors to clients.
const (
	errForbidden = "forbidden"
	errNotFound  = "not-found"
	errInvalid   = "invalid"
)

// ackResult is the data half of every acknowledgement. Optional fields are
// filled per command so a creating client learns its new id without a
// second round trip.
type ackResult struct {
	OK         bool              `json:"ok"`
	Error      string            `json:"error,omitempty"`
	ID         string            `json:"id,omitempty"`
	Token      *party.Presence   `json:"token,omitempty"`
	Cover      *scene.Cover      `json:"cover,omitempty"`
	Battlemap  *scene.Battlemap  `json:"battlemap,omitempty"`
	Battlemaps []scene.Battlemap `json:"battlemaps,omitempty"`
	ActiveID   string            `json:"activeId,omitempty"`
}

type idPayload struct {
	ID string `json:"id"`
}

type movePayload struct {
	ID       string         `json:"id"`
	Position party.Position `json:"position"`
}

type imagePayload struct {
	ID       string `json:"id"`
	ImageSrc string `json:"imageSrc"`
}

type sizePayload struct {
	ID   string     `json:"id"`
	Size party.Size `json:"size"`
}

type rosterPayload struct {
	Users []party.Presence `json:"users"`
}

type coversPayload struct {
	BattlemapID string        `json:"battlemapId"`
	Covers      []scene.Cover `json:"covers"`
}

type coverPayload struct {
	BattlemapID string      `json:"battlemapId"`
	Cover       scene.Cover `json:"cover"`
}

type coverRemovedPayload struct {
	BattlemapID string `json:"battlemapId"`
	ID          string `json:"id"`
}

type battlemapListPayload struct {
	Battlemaps []scene.Battlemap `json:"battlemaps"`
	ActiveID   string            `json:"activeId,omitempty"`
}

type battlemapPayload struct {
	Battlemap scene.Battlemap `json:"battlemap"`
}

type activePayload struct {
	ID string `json:"id"`
}

// sendEvent queues a single frame on one connection.
func (h *Hub) sendEvent(cs *connState, eventType string, data any) {
	frame, err := proto.EncodeEvent(eventType, data)
	if err != nil {
		h.logger.Error("failed to encode event",
			zap.String("event", eventType),
			zap.Error(err))
		return
	}
	h.deliverOrDrop(cs, frame)
}

// ack answers an acknowledged command directly to its issuer. Commands
// submitted without a seq get no reply.
func (h *Hub) ack(cs *connState, seq uint64, result ackResult) {
	if seq == 0 {
		return
	}
	frame, err := proto.EncodeAck(seq, result)
	if err != nil {
		h.logger.Error("failed to encode ack", zap.Error(err))
		return
	}
	h.deliverOrDrop(cs, frame)
}

// deliverOrDrop queues one frame on one connection and cuts the connection
// loose when its queue is full, same as the broadcast path. A client that
// misses a welcome frame or an acknowledgement is already desynced.
func (h *Hub) deliverOrDrop(cs *connState, frame []byte) {
	if h.deliver(cs, frame) {
		return
	}
	h.logger.Warn("dropping slow subscriber", zap.String("conn", cs.id))
	h.handleDisconnect(cs.id)
}

// broadcast fans one event out to every connection in apply order.
func (h *Hub) broadcast(eventType string, data any) {
	h.broadcastExcept("", eventType, data)
}

// broadcastExcept fans an event out to everyone but one connection, used
// when the excluded issuer gets an acknowledgement instead.
func (h *Hub) broadcastExcept(exceptConnID, eventType string, data any) {
	frame, err := proto.EncodeEvent(eventType, data)
	if err != nil {
		h.logger.Error("failed to encode event",
			zap.String("event", eventType),
			zap.Error(err))
		return
	}

	var stale []string
	for id, cs := range h.conns {
		if id == exceptConnID {
			continue
		}
		if !h.deliver(cs, frame) {
			stale = append(stale, id)
		}
	}
	// A reader that cannot keep up loses its connection, not everyone
	// else's time.
	for _, id := range stale {
		h.logger.Warn("dropping slow subscriber", zap.String("conn", id))
		h.handleDisconnect(id)
	}
}

func (h *Hub) deliver(cs *connState, frame []byte) bool {
	if err := cs.sub.Enqueue(frame); err != nil {
		h.framesDropped.Add(1)
		return false
	}
	h.framesTotal.Add(1)
	return true
}

func (h *Hub) syncGauges() {
	h.connGauge.Store(int64(len(h.conns)))
	h.rosterGauge.Store(int64(h.roster.Len()))
	h.benchedGauge.Store(int64(h.ledger.Len()))
	h.mapGauge.Store(int64(h.scene.Len()))
}

// BroadcastStats counts frames queued for delivery and frames lost to full
// subscriber queues.
type BroadcastStats struct {
	FramesTotal   uint64 `json:"framesTotal"`
	FramesDropped uint64 `json:"framesDropped"`
}

// Diagnostics is the hub's health snapshot for the diagnostics endpoint.
type Diagnostics struct {
	Connections int            `json:"connections"`
	Roster      int            `json:"roster"`
	Benched     int            `json:"benched"`
	Battlemaps  int            `json:"battlemaps"`
	Broadcast   BroadcastStats `json:"broadcast"`
}

// DiagnosticsSnapshot reads the hub gauges. Counts are maintained by the
// hub goroutine and read here without blocking it.
func (h *Hub) DiagnosticsSnapshot() Diagnostics {
	return Diagnostics{
		Connections: int(h.connGauge.Load()),
		Roster:      int(h.rosterGauge.Load()),
		Benched:     int(h.benchedGauge.Load()),
		Battlemaps:  int(h.mapGauge.Load()),
		Broadcast: BroadcastStats{
			FramesTotal:   h.framesTotal.Load(),
			FramesDropped: h.framesDropped.Load(),
		},
	}
}
