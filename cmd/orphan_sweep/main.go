package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"advisoryhub/internal/config"
	"advisoryhub/internal/database"
	"advisoryhub/internal/domain/content"
	"advisoryhub/internal/pkg/logger"
	"advisoryhub/internal/storage"
)

// Removes stored files that no content row references. Files younger than
// ORPHAN_GRACE are left alone.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatal("db connect failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		lg.Fatal("migrate failed", zap.Error(err))
	}
	blobs, err := storage.NewLocalStore(cfg.BlobBaseDir, cfg.BlobPublicBase, storage.ContentBucket, storage.ThumbnailBucket)
	if err != nil {
		lg.Fatal("blob store failed", zap.Error(err))
	}

	sweeper := content.NewSweeper(content.NewRepository(db), blobs, cfg.OrphanGrace, lg)
	report, err := sweeper.Sweep(ctx)
	if err != nil {
		lg.Fatal("orphan sweep failed", zap.Error(err))
	}
	lg.Info("orphan sweep completed",
		zap.Any("scanned", report.Scanned),
		zap.Any("removed", report.Removed),
		zap.Any("failed", report.Failed))
}
