package app

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"advisoryhub/internal/domain/auth"
	"advisoryhub/internal/domain/category"
	"advisoryhub/internal/domain/content"
	"advisoryhub/internal/domain/realtime"
	"advisoryhub/internal/middleware"
	"advisoryhub/internal/storage"
)

type RouterConfig struct {
	CORSAllowedOrigins []string
	BlobPublicBase     string
	BlobDir            string
	MaxUploadSize      int64
}

type Services struct {
	Auth       *auth.Service
	Categories *category.Service
	Content    *content.Service
	Realtime   *realtime.Handler
}

// NewRouter mounts every endpoint. Reads take an optional session; writes
// to categories and content require a consultant.
func NewRouter(cfg RouterConfig, svc Services, lg *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(lg.Named("http")), middleware.Recovery(lg.Named("http")), middleware.CORS(cfg.CORSAllowedOrigins))
	r.MaxMultipartMemory = 32 << 20

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	// Only thumbnails are public. Stored files go through the download
	// route so premium items stay behind a session.
	if cfg.BlobDir != "" {
		r.Static(cfg.BlobPublicBase+"/"+storage.ThumbnailBucket, filepath.Join(cfg.BlobDir, storage.ThumbnailBucket))
	}
	if svc.Realtime != nil {
		realtime.RegisterRoutes(r, svc.Realtime)
	}

	authHandler := auth.NewHandler(svc.Auth)
	categoryHandler := category.NewHandler(svc.Categories)
	contentHandler := content.NewHandler(svc.Content, cfg.MaxUploadSize)

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)

		public := v1.Group("")
		public.Use(middleware.OptionalAuth(svc.Auth))
		category.RegisterPublicRoutes(public, categoryHandler)
		content.RegisterPublicRoutes(public, contentHandler)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(svc.Auth))
		authHandler.RegisterProtectedRoutes(protected)

		consultant := protected.Group("")
		consultant.Use(middleware.ConsultantOnly())
		category.RegisterConsultantRoutes(consultant, categoryHandler)
		content.RegisterConsultantRoutes(consultant, contentHandler)
	}
	return r
}
