package server

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"battlemat/server/internal/party"
	"battlemat/server/internal/proto"
)

// resolveToken looks up the target of a fire-and-forget token update and
// applies the catalog's ownership rule: mutation authority always passes,
// and commands flagged owner-allowed also pass for the issuer's own token.
func (h *Hub) resolveToken(cs *connState, cmdType proto.CommandType, tokenID string) (*party.Presence, bool) {
	issuer := cs.presence
	if issuer == nil {
		h.logger.Debug("token update from connection without a token",
			zap.String("conn", cs.id))
		return nil, false
	}
	target, ok := h.roster.Get(tokenID)
	if !ok {
		h.logger.Debug("token update for unknown token",
			zap.String("conn", cs.id),
			zap.String("token", tokenID))
		return nil, false
	}
	spec, _ := proto.Lookup(cmdType)
	ownerOK := spec.OwnerAllowed && issuer.PersistentID == tokenID
	if !issuer.MutationAuthority && !ownerOK {
		h.logger.Debug("token update without authority",
			zap.String("conn", cs.id),
			zap.String("token", tokenID))
		return nil, false
	}
	return target, true
}

func (h *Hub) handlePositionUpdate(cs *connState, payload *proto.PositionCommand) {
	target, ok := h.resolveToken(cs, proto.CmdPositionUpdate, payload.TokenID)
	if !ok {
		return
	}
	target.Position = party.ClampPosition(party.Position{
		X: payload.Position.X,
		Y: payload.Position.Y,
	})
	// Everyone gets the echo, the mover included, so a display dragging
	// someone else's token converges with the rest of the room.
	h.broadcast(proto.EventUserMoved, movePayload{
		ID:       target.PersistentID,
		Position: target.Position,
	})
}

func (h *Hub) handleTokenImageUpdate(cs *connState, payload *proto.TokenImageCommand) {
	target, ok := h.resolveToken(cs, proto.CmdTokenImageUpdate, payload.TokenID)
	if !ok {
		return
	}
	target.ImageSrc = payload.ImageSrc
	h.broadcast(proto.EventTokenImageUpdated, imagePayload{
		ID:       target.PersistentID,
		ImageSrc: target.ImageSrc,
	})
}

func (h *Hub) handleTokenSizeUpdate(cs *connState, payload *proto.TokenSizeCommand) {
	target, ok := h.resolveToken(cs, proto.CmdTokenSizeUpdate, payload.TokenID)
	if !ok {
		return
	}
	size, ok := party.ParseSize(payload.Size)
	if !ok {
		h.logger.Debug("dropping unknown token size",
			zap.String("conn", cs.id),
			zap.String("size", payload.Size))
		return
	}
	target.Size = size
	h.broadcast(proto.EventTokenSizeUpdated, sizePayload{
		ID:   target.PersistentID,
		Size: target.Size,
	})
}

// handleAddToken spawns a freestanding token: a roster entry with no
// backing connection that survives every disconnect until removed.
func (h *Hub) handleAddToken(cs *connState, seq uint64, payload *proto.AddTokenCommand) {
	size := party.SizeMedium
	if payload.Size != "" {
		if parsed, ok := party.ParseSize(payload.Size); ok {
			size = parsed
		}
	}
	color := payload.Color
	if color == "" {
		color = colorPalette[h.rng.Intn(len(colorPalette))]
	}
	token := &party.Presence{
		PersistentID: uuid.NewString(),
		Color:        color,
		Position: party.ClampPosition(party.Position{
			X: payload.Position.X,
			Y: payload.Position.Y,
		}),
		ImageSrc: payload.ImageSrc,
		Size:     size,
		Role:     party.RoleParticipant,
	}
	h.roster.Add(token)

	h.logger.Info("freestanding token added",
		zap.String("conn", cs.id),
		zap.String("token", token.PersistentID))
	h.ack(cs, seq, ackResult{OK: true, ID: token.PersistentID, Token: token})
	h.broadcastExcept(cs.id, proto.EventTokenAdded, *token)
}

// handleRemoveToken deletes a token everywhere it might live: the roster,
// the resurrection ledger, and every client's view. The live owner, if any,
// is told its token is gone.
func (h *Hub) handleRemoveToken(cs *connState, seq uint64, payload *proto.RemoveTokenCommand) {
	persistentID := payload.PersistentID
	live, hadLive := h.roster.Remove(persistentID)
	hadBenched := h.ledger.Purge(persistentID)
	if !hadLive && !hadBenched {
		h.ack(cs, seq, ackResult{OK: false, Error: errNotFound})
		return
	}

	if hadLive && live.ConnectionID != "" {
		// Detach the victim connection so a later disconnect cannot bench
		// the removed token back into the ledger.
		if victim, ok := h.conns[live.ConnectionID]; ok {
			victim.presence = nil
		}
	}

	h.logger.Info("token removed",
		zap.String("conn", cs.id),
		zap.String("token", persistentID))
	h.ack(cs, seq, ackResult{OK: true, ID: persistentID})
	h.broadcastExcept(cs.id, proto.EventTokenRemoved, idPayload{ID: persistentID})
}
