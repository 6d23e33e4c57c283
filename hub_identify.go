package server

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"battlemat/server/internal/party"
	"battlemat/server/internal/proto"
)

// colorPalette seeds fresh joins. Reconnects keep whatever color they had.
var colorPalette = []string{
	"#ef4444", "#f97316", "#f59e0b", "#84cc16", "#22c55e", "#14b8a6",
	"#06b6d4", "#3b82f6", "#8b5cf6", "#a855f7", "#ec4899", "#f43f5e",
}

func (h *Hub) handleConnect(connID string, sub *Subscriber) {
	if existing, ok := h.conns[connID]; ok {
		h.logger.Warn("duplicate connection id", zap.String("conn", connID))
		existing.sub.Close()
	}
	cs := &connState{id: connID, sub: sub}
	h.conns[connID] = cs

	if h.cfg.IdentifyGrace > 0 {
		cs.graceTimer = time.AfterFunc(h.cfg.IdentifyGrace, func() {
			h.enqueue(hubCommand{kind: cmdIdentifyTimeout, connID: connID})
		})
	}
	h.logger.Debug("connection registered", zap.String("conn", connID))
}

// handleIdentifyTimeout guarantees every connection eventually has a
// presence, even against a client that never sends the handshake.
func (h *Hub) handleIdentifyTimeout(connID string) {
	cs, ok := h.conns[connID]
	if !ok || cs.identified {
		return
	}
	h.logger.Info("identify grace expired, assigning anonymous participant",
		zap.String("conn", connID))
	h.handleIdentify(cs, &proto.IdentifyCommand{})
}

func (h *Hub) handleIdentify(cs *connState, payload *proto.IdentifyCommand) {
	// Exactly one identify is honored per connection.
	if cs.identified {
		h.logger.Debug("duplicate identify ignored", zap.String("conn", cs.id))
		return
	}
	if payload == nil {
		payload = &proto.IdentifyCommand{}
	}
	cs.identified = true
	if cs.graceTimer != nil {
		cs.graceTimer.Stop()
		cs.graceTimer = nil
	}

	role := party.ParseRole(payload.Role)
	persistentID := payload.PersistentID
	if persistentID == "" {
		persistentID = uuid.NewString()
	}
	authority := role == party.RoleDisplay
	if payload.MutationAuthority != nil {
		authority = *payload.MutationAuthority
	}

	presence := &party.Presence{
		ConnectionID:      cs.id,
		PersistentID:      persistentID,
		Position:          party.DefaultPosition,
		Size:              party.SizeMedium,
		Role:              role,
		MutationAuthority: authority,
		Suppress:          payload.SuppressPresence,
	}

	announce := ""
	switch {
	case role == party.RoleDisplay || presence.Suppress:
		// Displays and suppressed connections never enter the roster and
		// never bench; they only watch and command.
		cs.presence = presence

	default:
		if existing, ok := h.roster.Get(persistentID); ok {
			// The id is already live (or freestanding): the newest
			// connection takes the token over.
			if prev, ok := h.conns[existing.ConnectionID]; ok && prev != cs {
				prev.presence = nil
			}
			existing.ConnectionID = cs.id
			existing.Role = role
			existing.MutationAuthority = authority
			presence = existing
			announce = proto.EventUserReconnected
		} else if benched, ok := h.ledger.Claim(persistentID); ok {
			presence.Color = benched.Color
			presence.Position = benched.Position
			presence.ImageSrc = benched.ImageSrc
			presence.Size = benched.Size
			h.roster.Add(presence)
			announce = proto.EventUserReconnected
		} else {
			presence.Color = colorPalette[h.rng.Intn(len(colorPalette))]
			h.roster.Add(presence)
			announce = proto.EventUserJoined
		}
		cs.presence = presence
	}

	h.logger.Info("connection identified",
		zap.String("conn", cs.id),
		zap.String("persistentId", persistentID),
		zap.String("role", string(role)),
		zap.Bool("authority", authority),
		zap.Bool("suppressed", presence.Suppress))

	h.sendWelcome(cs, presence)

	// The welcome itself can overflow the queue and drop the connection;
	// a presence that was just benched is not announced as joined.
	if _, live := h.conns[cs.id]; !live {
		return
	}

	if announce != "" {
		h.broadcastExcept(cs.id, announce, *presence)
	}
}

// sendWelcome delivers the full scene to a freshly identified connection:
// its own presence, the roster, the battlemap list, the active selection,
// and the active map's covers, in that order.
func (h *Hub) sendWelcome(cs *connState, presence *party.Presence) {
	h.sendEvent(cs, proto.EventUserConnected, *presence)
	h.sendEvent(cs, proto.EventAllUsers, rosterPayload{Users: h.roster.Snapshot()})
	h.sendEvent(cs, proto.EventBattlemapList, battlemapListPayload{
		Battlemaps: h.scene.List(),
		ActiveID:   h.scene.ActiveID(),
	})
	h.sendEvent(cs, proto.EventBattlemapActive, activePayload{ID: h.scene.ActiveID()})
	if active, ok := h.scene.Active(); ok {
		h.sendEvent(cs, proto.EventAllCovers, coversPayload{
			BattlemapID: active.ID,
			Covers:      active.CoverList(),
		})
	}
}

func (h *Hub) handleDisconnect(connID string) {
	cs, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)
	if cs.graceTimer != nil {
		cs.graceTimer.Stop()
		cs.graceTimer = nil
	}
	cs.sub.Close()

	presence := cs.presence
	if presence == nil || presence.Suppress || presence.Role == party.RoleDisplay {
		h.logger.Debug("connection closed", zap.String("conn", connID))
		return
	}
	if presence.ConnectionID != connID {
		// The token was taken over by a newer connection; nothing to bench.
		return
	}

	h.roster.Remove(presence.PersistentID)
	h.ledger.Bench(*presence, time.Now())
	h.logger.Info("participant benched",
		zap.String("conn", connID),
		zap.String("persistentId", presence.PersistentID))
	h.broadcast(proto.EventUserDisconnected, idPayload{ID: presence.PersistentID})
}
