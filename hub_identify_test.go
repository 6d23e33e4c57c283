package server

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"battlemat/server/internal/party"
	"battlemat/server/internal/proto"
	"battlemat/server/internal/scene"
)

func TestIdentifyWelcomeSequence(t *testing.T) {
	registry := seededRegistry(1)
	mapID := registry.ActiveID()
	if _, outcome := registry.AddCover(mapID, scene.Cover{X: 10, Y: 10, Width: 5, Height: 5}); outcome != scene.OutcomeOK {
		t.Fatalf("failed to seed cover")
	}
	hub := newTestHub(t, registry, nil)

	conn, _ := connect(hub, "c1")
	frames := identify(t, hub, conn, "c1", proto.IdentifyCommand{PersistentID: "hero"})

	want := []string{
		proto.EventUserConnected,
		proto.EventAllUsers,
		proto.EventBattlemapList,
		proto.EventBattlemapActive,
		proto.EventAllCovers,
	}
	for i, typ := range want {
		if frames[i].Type != typ {
			t.Fatalf("welcome frame %d: expected %q, got %q", i, typ, frames[i].Type)
		}
	}

	var self party.Presence
	decodeData(t, frames[0], &self)
	if self.PersistentID != "hero" {
		t.Fatalf("expected persistent id hero, got %q", self.PersistentID)
	}
	if self.Color == "" {
		t.Fatalf("expected a palette color to be assigned")
	}
	if self.Position != party.DefaultPosition {
		t.Fatalf("expected default position, got %+v", self.Position)
	}

	var roster rosterPayload
	decodeData(t, frames[1], &roster)
	if len(roster.Users) != 1 || roster.Users[0].PersistentID != "hero" {
		t.Fatalf("expected roster [hero], got %+v", roster.Users)
	}

	var covers coversPayload
	decodeData(t, frames[4], &covers)
	if covers.BattlemapID != mapID || len(covers.Covers) != 1 {
		t.Fatalf("expected one cover on %s, got %+v", mapID, covers)
	}
}

func TestIdentifyAnnouncesJoinToOthers(t *testing.T) {
	hub := newTestHub(t, nil, nil)

	first, _ := connect(hub, "c1")
	identify(t, hub, first, "c1", proto.IdentifyCommand{PersistentID: "one"})

	second, _ := connect(hub, "c2")
	identify(t, hub, second, "c2", proto.IdentifyCommand{PersistentID: "two"})

	frames := first.waitFrames(t, 5)
	joined := frames[4]
	if joined.Type != proto.EventUserJoined {
		t.Fatalf("expected user-joined, got %q", joined.Type)
	}
	var p party.Presence
	decodeData(t, joined, &p)
	if p.PersistentID != "two" {
		t.Fatalf("expected join announcement for two, got %q", p.PersistentID)
	}

	// The joiner itself never sees a user-joined echo.
	for _, f := range second.waitQuiet(t, 4) {
		if f.Type == proto.EventUserJoined {
			t.Fatalf("joiner received its own join announcement")
		}
	}
}

func TestResurrectionPreservesToken(t *testing.T) {
	hub := newTestHub(t, nil, nil)

	observer, _ := connect(hub, "obs")
	identify(t, hub, observer, "obs", proto.IdentifyCommand{PersistentID: "observer"})

	conn, _ := connect(hub, "c1")
	frames := identify(t, hub, conn, "c1", proto.IdentifyCommand{PersistentID: "hero"})
	var original party.Presence
	decodeData(t, frames[0], &original)

	hub.Submit("c1", proto.Command{Type: proto.CmdPositionUpdate, Position: &proto.PositionCommand{
		TokenID:  "hero",
		Position: proto.Point{X: 30, Y: 40},
	}})
	observer.waitFrames(t, 6) // welcome + user-joined + user-moved

	hub.Disconnect("c1")
	frames = observer.waitFrames(t, 7)
	if got := frames[6].Type; got != proto.EventUserDisconnected {
		t.Fatalf("expected user-disconnected, got %q", got)
	}

	reconn, _ := connect(hub, "c2")
	reframes := identify(t, hub, reconn, "c2", proto.IdentifyCommand{PersistentID: "hero"})
	var revived party.Presence
	decodeData(t, reframes[0], &revived)
	if revived.Color != original.Color {
		t.Fatalf("expected color %q preserved, got %q", original.Color, revived.Color)
	}
	if revived.Position.X != 30 || revived.Position.Y != 40 {
		t.Fatalf("expected position (30,40) preserved, got %+v", revived.Position)
	}

	frames = observer.waitQuiet(t, 8)
	if got := frames[7].Type; got != proto.EventUserReconnected {
		t.Fatalf("expected user-reconnected, got %q", got)
	}
}

func TestDisplayStaysOffRoster(t *testing.T) {
	hub := newTestHub(t, nil, nil)

	display, _ := connect(hub, "d1")
	frames := identify(t, hub, display, "d1", proto.IdentifyCommand{Role: "display"})
	var self party.Presence
	decodeData(t, frames[0], &self)
	if self.Role != party.RoleDisplay {
		t.Fatalf("expected display role, got %q", self.Role)
	}

	participant, _ := connect(hub, "p1")
	pframes := identify(t, hub, participant, "p1", proto.IdentifyCommand{PersistentID: "hero"})
	var roster rosterPayload
	decodeData(t, pframes[1], &roster)
	if len(roster.Users) != 1 || roster.Users[0].PersistentID != "hero" {
		t.Fatalf("expected roster to hold only hero, got %+v", roster.Users)
	}

	// Display disconnects silently: no bench, no announcement.
	hub.Disconnect("d1")
	participant.waitQuiet(t, 4)
}

func TestSuppressedPresenceStaysInvisible(t *testing.T) {
	hub := newTestHub(t, nil, nil)

	observer, _ := connect(hub, "obs")
	identify(t, hub, observer, "obs", proto.IdentifyCommand{PersistentID: "observer"})

	hidden, _ := connect(hub, "h1")
	identify(t, hub, hidden, "h1", proto.IdentifyCommand{PersistentID: "ghost", SuppressPresence: true})

	hub.Disconnect("h1")
	observer.waitQuiet(t, 4)
}

func TestDuplicateIdentifyIgnored(t *testing.T) {
	hub := newTestHub(t, nil, nil)

	conn, _ := connect(hub, "c1")
	identify(t, hub, conn, "c1", proto.IdentifyCommand{PersistentID: "hero"})

	hub.Submit("c1", proto.Command{Type: proto.CmdIdentify, Identify: &proto.IdentifyCommand{PersistentID: "other"}})
	conn.waitQuiet(t, 4)
}

func TestIdentifyGraceAssignsAnonymousParticipant(t *testing.T) {
	cfg := DefaultHubConfig()
	cfg.Logger = zap.NewNop()
	cfg.IdentifyGrace = 20 * time.Millisecond
	cfg.PingInterval = -1
	cfg.Seed = 1
	hub := NewHub(cfg, nil, nil)
	stop := make(chan struct{})
	go hub.Run(stop)
	t.Cleanup(func() { close(stop) })

	conn, _ := connect(hub, "c1")
	frames := conn.waitFrames(t, 4)
	if frames[0].Type != proto.EventUserConnected {
		t.Fatalf("expected auto-identify welcome, got %q", frames[0].Type)
	}
	var self party.Presence
	decodeData(t, frames[0], &self)
	if self.PersistentID == "" {
		t.Fatalf("expected generated persistent id")
	}
	if self.Role != party.RoleParticipant {
		t.Fatalf("expected participant role, got %q", self.Role)
	}
}

func TestLiveIDTakeover(t *testing.T) {
	hub := newTestHub(t, nil, nil)

	old, _ := connect(hub, "c1")
	identify(t, hub, old, "c1", proto.IdentifyCommand{PersistentID: "hero"})

	fresh, _ := connect(hub, "c2")
	identify(t, hub, fresh, "c2", proto.IdentifyCommand{PersistentID: "hero"})

	frames := old.waitFrames(t, 5)
	if got := frames[4].Type; got != proto.EventUserReconnected {
		t.Fatalf("expected user-reconnected on takeover, got %q", got)
	}

	// The displaced connection no longer owns the token, so its disconnect
	// must not bench it or announce anything.
	hub.Disconnect("c1")
	fresh.waitQuiet(t, 4)
}

func TestSuppressedAuthorityCanMutateScene(t *testing.T) {
	registry := seededRegistry(1)
	mapID := registry.ActiveID()
	hub := newTestHub(t, registry, nil)

	observer, _ := connect(hub, "obs")
	identify(t, hub, observer, "obs", proto.IdentifyCommand{PersistentID: "observer"})

	authority := true
	hidden, _ := connect(hub, "h1")
	identify(t, hub, hidden, "h1", proto.IdentifyCommand{
		PersistentID:      "ghost",
		SuppressPresence:  true,
		MutationAuthority: &authority,
	})
	observer.waitQuiet(t, 5)

	hub.Submit("h1", proto.Command{Type: proto.CmdBattlemapRename, Seq: 4, Rename: &proto.BattlemapRenameCommand{
		BattlemapID: mapID,
		Name:        "Oubliette",
	}})

	frames := hidden.waitFrames(t, 6)
	ack := requireAck(t, frames[5], 4)
	if !ack.OK {
		t.Fatalf("expected suppressed connection with authority to rename, got %+v", ack)
	}

	oframes := observer.waitQuiet(t, 6)
	updated := oframes[5]
	if updated.Type != proto.EventBattlemapUpdated {
		t.Fatalf("expected battlemap:updated, got %q", updated.Type)
	}
	var payload battlemapPayload
	decodeData(t, updated, &payload)
	if payload.Battlemap.Name != "Oubliette" {
		t.Fatalf("expected renamed battlemap, got %q", payload.Battlemap.Name)
	}

	// Still invisible: the mutation leaks no presence and the disconnect
	// stays silent.
	hub.Disconnect("h1")
	observer.waitQuiet(t, 6)
}
