package category

import "github.com/gin-gonic/gin"

func RegisterPublicRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("/categories", h.List)
}

// RegisterConsultantRoutes expects r to already require a consultant session.
func RegisterConsultantRoutes(r *gin.RouterGroup, h *Handler) {
	g := r.Group("/categories")
	{
		g.POST("", h.Create)
		g.PATCH("/:id", h.Rename)
		g.DELETE("/:id", h.Delete)
	}
}
