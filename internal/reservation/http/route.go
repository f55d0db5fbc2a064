package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers reservation routes. identity must resolve the
// caller's operator flag; the scheduler enforces operator-only transitions.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, identity gin.HandlerFunc) {
	group := g.Group("/reservations")

	// === Authenticated Routes ===
	group.Use(authMiddleware, identity)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", h.Create)
		group.POST("/:id/verify", h.Verify)     // Operator
		group.POST("/:id/complete", h.Complete) // Operator
		group.DELETE("/:id", h.Cancel)          // Owner or operator
	}
}
