package server

import (
	"time"

	"go.uber.org/zap"
)

// HubConfig tunes the hub's queues, identify handling, and keepalive.
type HubConfig struct {
	// Logger receives structured hub events; nil means a no-op logger.
	Logger *zap.Logger

	// IdentifyGrace bounds how long a connection may stay unidentified
	// before the hub identifies it as an anonymous participant. Zero uses
	// the default; negative disables the timer.
	IdentifyGrace time.Duration

	// CommandQueueSize bounds the hub's inbound command channel. Sessions
	// block on submit when it is full, preserving per-connection order.
	CommandQueueSize int

	// SubscriberQueueSize bounds each connection's outbound frame queue. A
	// reader that falls this far behind is dropped.
	SubscriberQueueSize int

	// WriteWait is the per-frame write deadline for subscriber writes.
	WriteWait time.Duration

	// PingInterval spaces keepalive pings on idle connections. Negative
	// disables pings.
	PingInterval time.Duration

	// Seed fixes the color-palette rng for deterministic tests. Zero seeds
	// from the clock.
	Seed int64
}

// DefaultHubConfig returns the production defaults.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		IdentifyGrace:       10 * time.Second,
		CommandQueueSize:    256,
		SubscriberQueueSize: 64,
		WriteWait:           10 * time.Second,
		PingInterval:        30 * time.Second,
	}
}

func (cfg HubConfig) withDefaults() HubConfig {
	def := DefaultHubConfig()
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.IdentifyGrace == 0 {
		cfg.IdentifyGrace = def.IdentifyGrace
	}
	if cfg.CommandQueueSize <= 0 {
		cfg.CommandQueueSize = def.CommandQueueSize
	}
	if cfg.SubscriberQueueSize <= 0 {
		cfg.SubscriberQueueSize = def.SubscriberQueueSize
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = def.PingInterval
	}
	return cfg
}
