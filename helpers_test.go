package server

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"battlemat/server/internal/persist"
	"battlemat/server/internal/proto"
	"battlemat/server/internal/scene"
)

// recordingConn captures everything a subscriber writes so tests can assert
// on frame order without a real socket.
type recordingConn struct {
	mu     sync.Mutex
	frames [][]byte
	pings  int
	closed bool
}

func (c *recordingConn) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	c.frames = append(c.frames, buf)
	return nil
}

func (c *recordingConn) Ping(time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	return nil
}

func (c *recordingConn) SetWriteDeadline(time.Time) error { return nil }

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) snapshot() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *recordingConn) waitFrames(t *testing.T, expected int) []testFrame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		frames := c.snapshot()
		if len(frames) >= expected {
			return decodeFrames(t, frames)
		}
		time.Sleep(5 * time.Millisecond)
	}
	frames := c.snapshot()
	t.Fatalf("expected %d frames, got %d: %s", expected, len(frames), frameTypes(t, frames))
	return nil
}

// waitQuiet asserts the frame count settles at exactly expected.
func (c *recordingConn) waitQuiet(t *testing.T, expected int) []testFrame {
	t.Helper()
	frames := c.waitFrames(t, expected)
	time.Sleep(50 * time.Millisecond)
	if got := len(c.snapshot()); got != expected {
		t.Fatalf("expected exactly %d frames, got %d: %s", expected, got, frameTypes(t, c.snapshot()))
	}
	return frames
}

type testFrame struct {
	Ver  int             `json:"ver"`
	Type string          `json:"type"`
	Seq  uint64          `json:"seq"`
	Data json.RawMessage `json:"data"`
}

func decodeFrames(t *testing.T, raw [][]byte) []testFrame {
	t.Helper()
	out := make([]testFrame, 0, len(raw))
	for _, payload := range raw {
		var f testFrame
		if err := json.Unmarshal(payload, &f); err != nil {
			t.Fatalf("malformed frame %s: %v", payload, err)
		}
		out = append(out, f)
	}
	return out
}

func frameTypes(t *testing.T, raw [][]byte) []string {
	t.Helper()
	frames := decodeFrames(t, raw)
	types := make([]string, len(frames))
	for i, f := range frames {
		types[i] = f.Type
	}
	return types
}

func decodeData(t *testing.T, f testFrame, dst any) {
	t.Helper()
	if err := json.Unmarshal(f.Data, dst); err != nil {
		t.Fatalf("failed to decode %s data: %v", f.Type, err)
	}
}

// testAck mirrors the ack result shape on the wire.
type testAck struct {
	OK         bool            `json:"ok"`
	Error      string          `json:"error"`
	ID         string          `json:"id"`
	Token      json.RawMessage `json:"token"`
	Cover      *scene.Cover    `json:"cover"`
	Battlemap  json.RawMessage `json:"battlemap"`
	Battlemaps json.RawMessage `json:"battlemaps"`
	ActiveID   string          `json:"activeId"`
}

func requireAck(t *testing.T, f testFrame, seq uint64) testAck {
	t.Helper()
	if f.Type != proto.EventAck {
		t.Fatalf("expected ack frame, got %q", f.Type)
	}
	if f.Seq != seq {
		t.Fatalf("expected ack seq %d, got %d", seq, f.Seq)
	}
	var ack testAck
	decodeData(t, f, &ack)
	return ack
}

// recordingPersister collects the ops the hub enqueues.
type recordingPersister struct {
	mu  sync.Mutex
	ops []persist.Op
}

func (p *recordingPersister) Enqueue(op persist.Op) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, op)
	return true
}

func (p *recordingPersister) snapshot() []persist.Op {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]persist.Op, len(p.ops))
	copy(out, p.ops)
	return out
}

func (p *recordingPersister) waitOps(t *testing.T, expected int) []persist.Op {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ops := p.snapshot()
		if len(ops) >= expected {
			return ops
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d persistence ops, got %d", expected, len(p.snapshot()))
	return nil
}

func newTestHub(t *testing.T, registry *scene.Registry, persister Persister) *Hub {
	t.Helper()
	cfg := DefaultHubConfig()
	cfg.Logger = zap.NewNop()
	cfg.IdentifyGrace = -1
	cfg.PingInterval = -1
	cfg.Seed = 1
	hub := NewHub(cfg, registry, persister)
	stop := make(chan struct{})
	go hub.Run(stop)
	t.Cleanup(func() { close(stop) })
	return hub
}

// connect attaches a recording connection and returns it with its subscriber.
func connect(h *Hub, connID string) (*recordingConn, *Subscriber) {
	conn := &recordingConn{}
	sub := h.Connect(connID, conn)
	return conn, sub
}

// identify submits the handshake and waits out the welcome sequence.
func identify(t *testing.T, h *Hub, conn *recordingConn, connID string, payload proto.IdentifyCommand) []testFrame {
	t.Helper()
	before := len(conn.snapshot())
	h.Submit(connID, proto.Command{Type: proto.CmdIdentify, Identify: &payload})
	return conn.waitFrames(t, before+welcomeFrameCount(h))
}

// welcomeFrameCount is 4 on an empty scene and 5 once an active battlemap
// exists, matching the welcome sequence.
func welcomeFrameCount(h *Hub) int {
	if h.scene.ActiveID() == "" {
		return 4
	}
	return 5
}

// seededRegistry builds a registry holding the given number of battlemaps,
// the first of which is active.
func seededRegistry(maps int) *scene.Registry {
	r := scene.NewRegistry()
	for i := 0; i < maps; i++ {
		r.CreateBattlemap("map", "")
	}
	return r
}
