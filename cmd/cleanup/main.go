package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go-viz/internal/config"
	"go-viz/internal/database"
	"go-viz/internal/features/session"
	"go-viz/internal/logger"

	"go.uber.org/zap"
)

// cleanup deletes sessions that have been idle for longer than the TTL. It is
// the one-shot form of the scheduled cleanup the API server runs.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	ttl := flag.Duration("ttl", cfg.SessionTTL, "delete sessions idle for longer than this")
	flag.Parse()

	l, err := logger.Build(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer l.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		l.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer db.Client.Disconnect(context.Background())

	repo := session.NewSessionRepository(db)
	ids, err := repo.DeleteIdle(ctx, time.Now().UTC().Add(-*ttl))
	if err != nil {
		l.Fatal("failed to delete idle sessions", zap.Error(err))
	}
	l.Info("deleted idle sessions", zap.Int("count", len(ids)), zap.Duration("ttl", *ttl))
}
