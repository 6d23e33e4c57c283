package server

import (
	"go.uber.org/zap"

	"battlemat/server/internal/persist"
	"battlemat/server/internal/proto"
	"battlemat/server/internal/scene"
)

// enqueuePersist hands a row mutation to the write-behind worker. The hub
// never waits on the store; a full queue drops the op and the worker logs it.
func (h *Hub) enqueuePersist(op persist.Op) {
	if h.persist == nil {
		return
	}
	h.persist.Enqueue(op)
}

// coverTarget resolves the battlemap a cover command addresses, defaulting
// to the active battlemap when the client omits the id.
func (h *Hub) coverTarget(battlemapID string) string {
	if battlemapID != "" {
		return battlemapID
	}
	return h.scene.ActiveID()
}

func (h *Hub) handleAddCover(cs *connState, seq uint64, payload *proto.AddCoverCommand) {
	mapID := h.coverTarget(payload.BattlemapID)
	cover, outcome := h.scene.AddCover(mapID, scene.Cover{
		X:      payload.X,
		Y:      payload.Y,
		Width:  payload.Width,
		Height: payload.Height,
		Color:  payload.Color,
	})
	if outcome != scene.OutcomeOK {
		h.ack(cs, seq, ackResult{OK: false, Error: errNotFound})
		return
	}
	row := cover.Row(mapID)
	h.enqueuePersist(persist.Op{Kind: persist.OpInsertCover, Cover: &row})

	h.ack(cs, seq, ackResult{OK: true, ID: cover.ID, Cover: &cover})
	h.broadcastExcept(cs.id, proto.EventCoverAdded, coverPayload{
		BattlemapID: mapID,
		Cover:       cover,
	})
}

func (h *Hub) handleUpdateCover(cs *connState, seq uint64, payload *proto.UpdateCoverCommand) {
	mapID := h.coverTarget(payload.BattlemapID)
	cover, outcome := h.scene.UpdateCover(mapID, payload.CoverID, scene.CoverPatch{
		X:      payload.X,
		Y:      payload.Y,
		Width:  payload.Width,
		Height: payload.Height,
		Color:  payload.Color,
	})
	if outcome != scene.OutcomeOK {
		h.ack(cs, seq, ackResult{OK: false, Error: errNotFound})
		return
	}
	row := cover.Row(mapID)
	h.enqueuePersist(persist.Op{Kind: persist.OpUpdateCover, Cover: &row})

	h.ack(cs, seq, ackResult{OK: true, ID: cover.ID, Cover: &cover})
	h.broadcastExcept(cs.id, proto.EventCoverUpdated, coverPayload{
		BattlemapID: mapID,
		Cover:       cover,
	})
}

func (h *Hub) handleRemoveCover(cs *connState, seq uint64, payload *proto.RemoveCoverCommand) {
	mapID := h.coverTarget(payload.BattlemapID)
	if outcome := h.scene.RemoveCover(mapID, payload.CoverID); outcome != scene.OutcomeOK {
		h.ack(cs, seq, ackResult{OK: false, Error: errNotFound})
		return
	}
	h.enqueuePersist(persist.Op{Kind: persist.OpDeleteCover, ID: payload.CoverID})

	h.ack(cs, seq, ackResult{OK: true, ID: payload.CoverID})
	h.broadcastExcept(cs.id, proto.EventCoverRemoved, coverRemovedPayload{
		BattlemapID: mapID,
		ID:          payload.CoverID,
	})
}

func (h *Hub) handleBattlemapCreate(cs *connState, seq uint64, payload *proto.BattlemapCreateCommand) {
	name := payload.Name
	if name == "" {
		name = scene.DefaultBattlemapName
	}
	bm, activated := h.scene.CreateBattlemap(name, payload.MapPath)
	row := bm.Row()
	h.enqueuePersist(persist.Op{Kind: persist.OpInsertBattlemap, Battlemap: &row})

	h.logger.Info("battlemap created",
		zap.String("conn", cs.id),
		zap.String("battlemap", bm.ID),
		zap.Bool("activated", activated))

	snapshot := bm.Snapshot()
	h.ack(cs, seq, ackResult{OK: true, ID: bm.ID, Battlemap: &snapshot})
	h.broadcastExcept(cs.id, proto.EventBattlemapList, battlemapListPayload{
		Battlemaps: h.scene.List(),
		ActiveID:   h.scene.ActiveID(),
	})
	if activated {
		h.broadcastExcept(cs.id, proto.EventBattlemapActive, activePayload{ID: bm.ID})
	}
}

func (h *Hub) handleBattlemapRename(cs *connState, seq uint64, payload *proto.BattlemapRenameCommand) {
	bm, outcome := h.scene.RenameBattlemap(payload.BattlemapID, payload.Name)
	if outcome != scene.OutcomeOK {
		h.ack(cs, seq, ackResult{OK: false, Error: errNotFound})
		return
	}
	h.finishBattlemapUpdate(cs, seq, bm)
}

func (h *Hub) handleBattlemapMapPath(cs *connState, seq uint64, payload *proto.BattlemapMapPathCommand) {
	bm, outcome := h.scene.SetMapPath(payload.BattlemapID, payload.MapPath)
	if outcome != scene.OutcomeOK {
		h.ack(cs, seq, ackResult{OK: false, Error: errNotFound})
		return
	}
	h.finishBattlemapUpdate(cs, seq, bm)
}

func (h *Hub) handleBattlemapSettings(cs *connState, seq uint64, payload *proto.BattlemapSettingsCommand) {
	bm, outcome := h.scene.UpdateSettings(payload.BattlemapID, scene.SettingsPatch{
		GridScale:   payload.GridScale,
		GridOffsetX: payload.GridOffsetX,
		GridOffsetY: payload.GridOffsetY,
	})
	if outcome != scene.OutcomeOK {
		h.ack(cs, seq, ackResult{OK: false, Error: errNotFound})
		return
	}
	h.finishBattlemapUpdate(cs, seq, bm)
}

func (h *Hub) handleBattlemapGridData(cs *connState, seq uint64, payload *proto.BattlemapGridDataCommand) {
	grid := scene.DecodeGridData([]byte(payload.GridData))
	bm, outcome := h.scene.SetGridData(payload.BattlemapID, grid)
	if outcome != scene.OutcomeOK {
		h.ack(cs, seq, ackResult{OK: false, Error: errNotFound})
		return
	}
	h.finishBattlemapUpdate(cs, seq, bm)
}

// finishBattlemapUpdate is the shared tail of every in-place battlemap edit:
// persist the new row, ack the issuer, announce battlemap:updated to the rest.
func (h *Hub) finishBattlemapUpdate(cs *connState, seq uint64, bm *scene.Battlemap) {
	row := bm.Row()
	h.enqueuePersist(persist.Op{Kind: persist.OpUpdateBattlemap, Battlemap: &row})

	snapshot := bm.Snapshot()
	h.ack(cs, seq, ackResult{OK: true, ID: bm.ID, Battlemap: &snapshot})
	h.broadcastExcept(cs.id, proto.EventBattlemapUpdated, battlemapPayload{Battlemap: snapshot})
}

func (h *Hub) handleBattlemapDelete(cs *connState, seq uint64, payload *proto.BattlemapTargetCommand) {
	activeChanged, outcome := h.scene.DeleteBattlemap(payload.BattlemapID)
	if outcome != scene.OutcomeOK {
		h.ack(cs, seq, ackResult{OK: false, Error: errNotFound})
		return
	}
	// Covers go with the battlemap through the store's cascade, so one
	// delete op is enough.
	h.enqueuePersist(persist.Op{Kind: persist.OpDeleteBattlemap, ID: payload.BattlemapID})

	h.logger.Info("battlemap deleted",
		zap.String("conn", cs.id),
		zap.String("battlemap", payload.BattlemapID),
		zap.Bool("activeChanged", activeChanged))

	h.ack(cs, seq, ackResult{OK: true, ID: payload.BattlemapID, ActiveID: h.scene.ActiveID()})
	h.broadcastExcept(cs.id, proto.EventBattlemapDeleted, idPayload{ID: payload.BattlemapID})
	h.broadcastExcept(cs.id, proto.EventBattlemapList, battlemapListPayload{
		Battlemaps: h.scene.List(),
		ActiveID:   h.scene.ActiveID(),
	})
	if activeChanged {
		h.broadcastExcept(cs.id, proto.EventBattlemapActive, activePayload{ID: h.scene.ActiveID()})
	}
}

func (h *Hub) handleBattlemapSetActive(cs *connState, seq uint64, payload *proto.BattlemapTargetCommand) {
	changed, outcome := h.scene.SetActive(payload.BattlemapID)
	if outcome != scene.OutcomeOK {
		h.ack(cs, seq, ackResult{OK: false, Error: errNotFound})
		return
	}
	h.ack(cs, seq, ackResult{OK: true, ID: payload.BattlemapID, ActiveID: h.scene.ActiveID()})
	if !changed {
		return
	}
	h.broadcastExcept(cs.id, proto.EventBattlemapActive, activePayload{ID: payload.BattlemapID})
}

func (h *Hub) handleBattlemapGet(cs *connState, seq uint64, payload *proto.BattlemapTargetCommand) {
	bm, ok := h.scene.Get(payload.BattlemapID)
	if !ok {
		h.ack(cs, seq, ackResult{OK: false, Error: errNotFound})
		return
	}
	snapshot := bm.Snapshot()
	h.ack(cs, seq, ackResult{OK: true, ID: bm.ID, Battlemap: &snapshot})
}

func (h *Hub) handleBattlemapList(cs *connState, seq uint64) {
	h.ack(cs, seq, ackResult{OK: true, Battlemaps: h.scene.List(), ActiveID: h.scene.ActiveID()})
}
