package content

import "github.com/gin-gonic/gin"

// RegisterPublicRoutes mounts the read endpoints. r should carry optional
// auth so premium items unlock for signed-in callers.
func RegisterPublicRoutes(r *gin.RouterGroup, h *Handler) {
	g := r.Group("/content")
	{
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.GET("/:id/download", h.Download)
	}
}

// RegisterConsultantRoutes expects r to already require a consultant session.
func RegisterConsultantRoutes(r *gin.RouterGroup, h *Handler) {
	g := r.Group("/content")
	{
		g.POST("", h.Submit)
		g.POST("/pending/:token", h.Resolve)
		g.PATCH("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
	}
}
