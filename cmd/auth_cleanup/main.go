package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"advisoryhub/internal/config"
	"advisoryhub/internal/database"
	"advisoryhub/internal/domain/auth"
	"advisoryhub/internal/pkg/logger"
)

// Removes revocation records whose tokens have expired anyway.
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

	db, err := database.Connect(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatal("db connect failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		lg.Fatal("migrate failed", zap.Error(err))
	}

	n, err := auth.NewRepository(db).PurgeExpiredRevocations(context.Background(), time.Now())
	if err != nil {
		lg.Fatal("cleanup revoked_tokens failed", zap.Error(err))
	}
	lg.Info("auth cleanup completed", zap.Int64("revoked_tokens", n))
}
