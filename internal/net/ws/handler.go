// Package ws upgrades HTTP requests into battlemat sessions: one read pump
// per connection feeding the hub, with all writes funneled through the hub's
// subscriber queue.
package ws

import (
	"errors"
	"fmt"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"battlemat/server"
	"battlemat/server/internal/proto"
)

const (
	maxMessageSize = 64 << 10
	pongWait       = 60 * time.Second
)

// invalidAck mirrors the hub's negative acknowledgement for frames the hub
// never sees because they failed to decode.
type invalidAck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type HandlerConfig struct {
	Logger *zap.Logger
}

// Handler upgrades websocket requests and pumps inbound frames into the hub.
type Handler struct {
	hub      *server.Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		logger:   logger,
		upgrader: upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connID := fmt.Sprintf("conn-%d", h.nextID.Add(1))
	sub := h.hub.Connect(connID, &socketConn{conn: conn})

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.logger.Info("session opened",
		zap.String("conn", connID),
		zap.String("remote", r.RemoteAddr))

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.logger.Info("session closed",
				zap.String("conn", connID),
				zap.Error(err))
			h.hub.Disconnect(connID)
			return
		}

		cmd, err := proto.DecodeCommand(payload)
		if err != nil {
			h.logger.Debug("discarding malformed frame",
				zap.String("conn", connID),
				zap.Error(err))
			// An acknowledged command still gets its reject even when the
			// payload never reached the hub.
			var decodeErr *proto.DecodeError
			if errors.As(err, &decodeErr) && decodeErr.Seq > 0 {
				frame, encErr := proto.EncodeAck(decodeErr.Seq, invalidAck{Error: "invalid"})
				if encErr == nil {
					sub.Enqueue(frame)
				}
			}
			continue
		}

		h.hub.Submit(connID, cmd)
	}
}

// socketConn adapts a gorilla connection to the hub's write contract. All
// calls come from the single subscriber goroutine, so no locking is needed
// beyond what gorilla provides for control frames.
type socketConn struct {
	conn *websocket.Conn
}

func (c *socketConn) Write(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *socketConn) Ping(deadline time.Time) error {
	return c.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

func (c *socketConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *socketConn) Close() error {
	return c.conn.Close()
}
