package realtime

import "github.com/gin-gonic/gin"

func RegisterRoutes(r gin.IRoutes, h *Handler) {
	r.GET("/ws/content", h.Serve)
}
