// Package app wires the process together: config from the environment, the
// durable store, the hub, and the HTTP server.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	server "battlemat/server"
	servernet "battlemat/server/internal/net"
	"battlemat/server/internal/persist"
	"battlemat/server/internal/scene"
	"battlemat/server/internal/store"
)

func Run(ctx context.Context) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to construct logger: %w", err)
	}
	defer logger.Sync()

	dbPath := envString("BATTLEMAT_DB", "battlemat.db")
	st, err := store.OpenSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store %s: %w", dbPath, err)
	}
	defer st.Close()

	maps, covers, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scene: %w", err)
	}
	if len(maps) == 0 {
		// A fresh database still boots with one usable battlemap.
		seed := scene.SeedRow(uuid.NewString(), time.Now())
		if err := st.InsertBattlemap(ctx, seed); err != nil {
			return fmt.Errorf("failed to seed battlemap: %w", err)
		}
		maps = []store.BattlemapRow{seed}
		logger.Info("seeded empty store", zap.String("battlemap", seed.ID))
	}
	registry := scene.FromRows(maps, covers)
	logger.Info("scene loaded",
		zap.Int("battlemaps", len(maps)),
		zap.Int("covers", len(covers)),
		zap.String("active", registry.ActiveID()))

	writer := persist.NewWriter(st, persist.Config{}, logger.Named("persist"))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := writer.Close(closeCtx); cerr != nil {
			logger.Warn("failed to drain persistence queue", zap.Error(cerr))
		}
	}()

	hubCfg := server.DefaultHubConfig()
	hubCfg.Logger = logger.Named("hub")
	if raw := os.Getenv("BATTLEMAT_IDENTIFY_GRACE"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil {
			hubCfg.IdentifyGrace = time.Duration(secs) * time.Second
		} else {
			logger.Warn("invalid BATTLEMAT_IDENTIFY_GRACE", zap.String("value", raw))
		}
	}

	hub := server.NewHub(hubCfg, registry, writer)
	stop := make(chan struct{})
	go hub.Run(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir:    os.Getenv("BATTLEMAT_CLIENT_DIR"),
		Logger:       logger.Named("net"),
		PersistStats: writer.Stats,
	})

	srv := &http.Server{Addr: envString("BATTLEMAT_ADDR", ":8080"), Handler: handler}
	logger.Info("server listening", zap.String("addr", srv.Addr))

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("BATTLEMAT_ENV") == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
