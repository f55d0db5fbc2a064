package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorLogger logs the errors a handler attached to the context, which are
// the ones rendered to the client as a generic 500.
func ErrorLogger(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Int("status", c.Writer.Status()),
				zap.Error(e.Err),
			)
		}
	}
}
