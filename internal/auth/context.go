package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID     = "userID"
	ctxIsOperator = "isOperator"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// IsOperator reports the operator flag resolved by LoadIdentity. It is false
// when the middleware did not run.
func IsOperator(c *gin.Context) bool {
	return c.GetBool(ctxIsOperator)
}
