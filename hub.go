// Package server implements the authoritative scene-synchronization hub: it
// owns the token roster, the resurrection ledger, and the battlemap scene,
// and fans every accepted mutation out to all connected clients.
package server

import (
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"battlemat/server/internal/party"
	"battlemat/server/internal/persist"
	"battlemat/server/internal/proto"
	"battlemat/server/internal/scene"
)

// Persister receives the row mutations implied by accepted scene commands.
// Enqueueing never blocks; a false return means the op was dropped.
type Persister interface {
	Enqueue(op persist.Op) bool
}

type hubCommandKind int

const (
	cmdConnect hubCommandKind = iota
	cmdDisconnect
	cmdClient
	cmdIdentifyTimeout
)

type hubCommand struct {
	kind   hubCommandKind
	connID string
	sub    *Subscriber
	cmd    proto.Command
}

type connState struct {
	id         string
	sub        *Subscriber
	presence   *party.Presence
	identified bool
	graceTimer *time.Timer
}

// Hub is the single-writer state container. One goroutine (Run) owns every
// map below; network sessions only ever talk to it through the command
// channel, so no state access needs a lock.
type Hub struct {
	cfg     HubConfig
	logger  *zap.Logger
	scene   *scene.Registry
	persist Persister

	commands chan hubCommand
	done     chan struct{}

	conns  map[string]*connState
	roster *party.Roster
	ledger *party.Ledger
	rng    *rand.Rand

	connGauge     atomic.Int64
	rosterGauge   atomic.Int64
	benchedGauge  atomic.Int64
	mapGauge      atomic.Int64
	framesTotal   atomic.Uint64
	framesDropped atomic.Uint64
}

// NewHub wires a hub over the given scene registry. The persister may be
// nil when durable storage is not in play.
func NewHub(cfg HubConfig, registry *scene.Registry, persister Persister) *Hub {
	cfg = cfg.withDefaults()
	if registry == nil {
		registry = scene.NewRegistry()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Hub{
		cfg:      cfg,
		logger:   cfg.Logger,
		scene:    registry,
		persist:  persister,
		commands: make(chan hubCommand, cfg.CommandQueueSize),
		done:     make(chan struct{}),
		conns:    make(map[string]*connState),
		roster:   party.NewRoster(),
		ledger:   party.NewLedger(),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Run drains the command channel until the stop channel closes. All state
// mutation happens on this goroutine; broadcast order equals apply order.
func (h *Hub) Run(stop <-chan struct{}) {
	defer close(h.done)
	for {
		select {
		case <-stop:
			for _, cs := range h.conns {
				if cs.graceTimer != nil {
					cs.graceTimer.Stop()
				}
				cs.sub.Close()
			}
			return
		case c := <-h.commands:
			h.dispatch(c)
		}
	}
}

// Connect registers a new connection and returns its subscriber. Frames
// queue on the subscriber until the hub goroutine processes the
// registration, so nothing is lost in between.
func (h *Hub) Connect(connID string, conn Conn) *Subscriber {
	sub := newSubscriber(connID, conn, h.cfg.SubscriberQueueSize, h.cfg.WriteWait, h.cfg.PingInterval)
	h.enqueue(hubCommand{kind: cmdConnect, connID: connID, sub: sub})
	return sub
}

// Submit hands a decoded client command to the hub. It blocks when the
// command queue is full, which keeps a connection's commands in read order.
func (h *Hub) Submit(connID string, cmd proto.Command) {
	h.enqueue(hubCommand{kind: cmdClient, connID: connID, cmd: cmd})
}

// Disconnect tears down a connection's presence. Safe to call more than
// once; only the first call has any effect.
func (h *Hub) Disconnect(connID string) {
	h.enqueue(hubCommand{kind: cmdDisconnect, connID: connID})
}

func (h *Hub) enqueue(c hubCommand) {
	select {
	case h.commands <- c:
	case <-h.done:
	}
}

func (h *Hub) dispatch(c hubCommand) {
	switch c.kind {
	case cmdConnect:
		h.handleConnect(c.connID, c.sub)
	case cmdDisconnect:
		h.handleDisconnect(c.connID)
	case cmdIdentifyTimeout:
		h.handleIdentifyTimeout(c.connID)
	case cmdClient:
		h.handleClient(c.connID, c.cmd)
	}
	h.syncGauges()
}

func (h *Hub) handleClient(connID string, cmd proto.Command) {
	cs, ok := h.conns[connID]
	if !ok {
		h.logger.Debug("command from unknown connection",
			zap.String("conn", connID),
			zap.String("type", string(cmd.Type)))
		return
	}

	if cmd.Type == proto.CmdIdentify {
		h.handleIdentify(cs, cmd.Identify)
		return
	}

	spec, ok := proto.Lookup(cmd.Type)
	if !ok {
		h.logger.Warn("command missing from catalog", zap.String("type", string(cmd.Type)))
		return
	}

	if !cs.identified {
		h.rejectOrDrop(cs, spec, cmd.Seq, errForbidden, "command before identify")
		return
	}

	if spec.RequiresAuthority {
		if cs.presence == nil || !cs.presence.MutationAuthority {
			h.rejectOrDrop(cs, spec, cmd.Seq, errForbidden, "mutation authority required")
			return
		}
	}

	switch cmd.Type {
	case proto.CmdPositionUpdate:
		h.handlePositionUpdate(cs, cmd.Position)
	case proto.CmdTokenImageUpdate:
		h.handleTokenImageUpdate(cs, cmd.TokenImage)
	case proto.CmdTokenSizeUpdate:
		h.handleTokenSizeUpdate(cs, cmd.TokenSize)
	case proto.CmdAddToken:
		h.handleAddToken(cs, cmd.Seq, cmd.AddToken)
	case proto.CmdRemoveToken:
		h.handleRemoveToken(cs, cmd.Seq, cmd.RemoveToken)
	case proto.CmdAddCover:
		h.handleAddCover(cs, cmd.Seq, cmd.AddCover)
	case proto.CmdUpdateCover:
		h.handleUpdateCover(cs, cmd.Seq, cmd.UpdateCover)
	case proto.CmdRemoveCover:
		h.handleRemoveCover(cs, cmd.Seq, cmd.RemoveCover)
	case proto.CmdBattlemapCreate:
		h.handleBattlemapCreate(cs, cmd.Seq, cmd.Create)
	case proto.CmdBattlemapRename:
		h.handleBattlemapRename(cs, cmd.Seq, cmd.Rename)
	case proto.CmdBattlemapMapPath:
		h.handleBattlemapMapPath(cs, cmd.Seq, cmd.MapPath)
	case proto.CmdBattlemapSettings:
		h.handleBattlemapSettings(cs, cmd.Seq, cmd.Settings)
	case proto.CmdBattlemapGridData:
		h.handleBattlemapGridData(cs, cmd.Seq, cmd.GridData)
	case proto.CmdBattlemapDelete:
		h.handleBattlemapDelete(cs, cmd.Seq, cmd.Target)
	case proto.CmdBattlemapSetActive:
		h.handleBattlemapSetActive(cs, cmd.Seq, cmd.Target)
	case proto.CmdBattlemapGet:
		h.handleBattlemapGet(cs, cmd.Seq, cmd.Target)
	case proto.CmdBattlemapList:
		h.handleBattlemapList(cs, cmd.Seq)
	}
}

// rejectOrDrop answers a gate failure: acknowledged commands get an error
// reply the issuer can surface, fire-and-forget commands vanish with a log
// line. Nobody else ever sees a rejected command.
func (h *Hub) rejectOrDrop(cs *connState, spec proto.Spec, seq uint64, errCode, reason string) {
	h.logger.Debug("command rejected",
		zap.String("conn", cs.id),
		zap.String("type", string(spec.Type)),
		zap.String("reason", reason))
	if spec.Acknowledged {
		h.ack(cs, seq, ackResult{OK: false, Error: errCode})
	}
}
