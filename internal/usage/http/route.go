package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the operator usage report.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, identity, operatorMiddleware gin.HandlerFunc) {
	g.GET("/usage", authMiddleware, identity, operatorMiddleware, h.Report)
}
