package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"advisoryhub/internal/app"
	"advisoryhub/internal/changefeed"
	"advisoryhub/internal/config"
	"advisoryhub/internal/database"
	"advisoryhub/internal/domain/auth"
	"advisoryhub/internal/domain/category"
	"advisoryhub/internal/domain/content"
	"advisoryhub/internal/domain/realtime"
	jwtsvc "advisoryhub/internal/pkg/jwt"
	"advisoryhub/internal/pkg/logger"
	"advisoryhub/internal/storage"
)

// @title Advisory Hub API
// @version 1.0
// @description Content library for consultants and their clients.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
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

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, lg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	blobs, err := storage.NewLocalStore(cfg.BlobBaseDir, cfg.BlobPublicBase, storage.ContentBucket, storage.ThumbnailBucket)
	if err != nil {
		return err
	}

	// Writers publish to Postgres when it is available so every instance
	// hears about the change; the listener feeds the local fan-out.
	feed := changefeed.NewFeed()
	defer feed.Close()
	var publisher changefeed.Publisher = feed
	if cfg.IsPostgres() {
		publisher = changefeed.NewPGNotifier(db, cfg.ChangefeedChannel)
		listener := changefeed.NewPGListener(cfg.DatabaseURL, cfg.ChangefeedChannel, feed, lg.Named("changefeed"))
		go listener.Run(ctx)
	}

	tokens := jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL)
	authService := auth.NewService(auth.NewRepository(db), tokens, lg.Named("auth"))
	categoryService := category.NewService(category.NewRepository(db), publisher, lg.Named("category"))

	pending := content.NewPendingStore(cfg.PendingTTL, cfg.PendingMaxPerOwner)
	go pending.Run(ctx, time.Minute)

	contentRepo := content.NewRepository(db)
	contentService := content.NewService(contentRepo, blobs, categoryService, pending, publisher, content.Options{
		MaxUploadSize: cfg.MaxUploadSize,
		ListLimit:     cfg.ListLimit,
	}, lg.Named("content"))

	if cfg.OrphanSweepInterval > 0 {
		sweeper := content.NewSweeper(contentRepo, blobs, cfg.OrphanGrace, lg.Named("sweeper"))
		go sweeper.Schedule(ctx, cfg.OrphanSweepInterval)
	}

	hub := realtime.NewHub(lg.Named("realtime"))
	defer hub.Close()
	invalidator := realtime.NewInvalidator(feed, hub, lg.Named("realtime"), "content", "categories")
	go invalidator.Run(ctx)
	wsHandler := realtime.NewHandler(hub, authService, cfg.CORSAllowedOrigins, lg.Named("realtime"))
	defer wsHandler.Close()

	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := app.NewRouter(app.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		BlobPublicBase:     cfg.BlobPublicBase,
		BlobDir:            blobs.BaseDir(),
		MaxUploadSize:      cfg.MaxUploadSize,
	}, app.Services{
		Auth:       authService,
		Categories: categoryService,
		Content:    contentService,
		Realtime:   wsHandler,
	}, lg)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
