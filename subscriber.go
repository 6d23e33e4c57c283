package server

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// errSubscriberQueueFull reports a reader that fell too far behind; the hub
// responds by dropping the connection rather than stalling everyone else.
var errSubscriberQueueFull = errors.New("subscriber queue full")

// Conn is the narrow transport surface a subscriber writes to. The websocket
// layer adapts a real socket; tests substitute recording fakes.
type Conn interface {
	Write(data []byte) error
	Ping(deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Subscriber owns the outbound half of one connection: a bounded frame
// queue drained by a dedicated writer goroutine, so a slow socket can only
// ever lose its own frames.
type Subscriber struct {
	connID string
	conn   Conn

	queue chan []byte
	done  chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup

	writeWait    time.Duration
	pingInterval time.Duration

	sent    atomic.Uint64
	dropped atomic.Uint64
}

func newSubscriber(connID string, conn Conn, queueSize int, writeWait, pingInterval time.Duration) *Subscriber {
	if queueSize <= 0 {
		queueSize = 64
	}
	s := &Subscriber{
		connID:       connID,
		conn:         conn,
		queue:        make(chan []byte, queueSize),
		done:         make(chan struct{}),
		writeWait:    writeWait,
		pingInterval: pingInterval,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// ConnID returns the transport-assigned connection id.
func (s *Subscriber) ConnID() string {
	return s.connID
}

// Enqueue stages a frame for the writer goroutine without blocking.
func (s *Subscriber) Enqueue(frame []byte) error {
	select {
	case <-s.done:
		return errSubscriberQueueFull
	default:
	}
	select {
	case s.queue <- frame:
		return nil
	default:
		s.dropped.Add(1)
		return errSubscriberQueueFull
	}
}

func (s *Subscriber) run() {
	defer s.wg.Done()

	var ticker *time.Ticker
	var tick <-chan time.Time
	if s.pingInterval > 0 {
		ticker = time.NewTicker(s.pingInterval)
		tick = ticker.C
		defer ticker.Stop()
	}

	for {
		select {
		case <-s.done:
			return
		case frame := <-s.queue:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if err := s.conn.Write(frame); err != nil {
				s.Close()
				return
			}
			s.sent.Add(1)
		case <-tick:
			if err := s.conn.Ping(time.Now().Add(s.writeWait)); err != nil {
				s.Close()
				return
			}
		}
	}
}

// Close stops the writer and closes the underlying connection. It is safe
// to call from any goroutine, any number of times.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// Stats reports frames written and frames dropped on the floor.
func (s *Subscriber) Stats() (sent, dropped uint64) {
	return s.sent.Load(), s.dropped.Load()
}
