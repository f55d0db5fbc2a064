package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/machine-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/machine-booking-backend/internal/pkg/response"
)

// AuthRequired is a Gin middleware that validates JWT from Authorization: Bearer <token>
func AuthRequired(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}

		scheme, tokenStr, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header format"})
			return
		}

		claims, err := jwtManager.ParseAndValidate(strings.TrimSpace(tokenStr))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ctxUserID, claims.Subject)

		c.Next()
	}
}

// OperatorChecker resolves the operator flag of an account. It fails with a
// 4xx *apperror.AppError for unknown or deactivated accounts.
type OperatorChecker interface {
	IsOperator(ctx context.Context, userID string) (bool, error)
}

// LoadIdentity resolves the operator flag of the authenticated user so
// handlers can pass it to the scheduler. It MUST be used after AuthRequired.
func LoadIdentity(checker OperatorChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		isOperator, err := checker.IsOperator(c.Request.Context(), userID)
		if err != nil {
			// Unknown or deactivated accounts stay 401; store failures are 500s.
			if appErr, ok := apperror.As(err); ok && appErr.Code < http.StatusInternalServerError {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
				return
			}
			c.Abort()
			response.Error(c, err)
			return
		}

		c.Set(ctxIsOperator, isOperator)
		c.Next()
	}
}

// RequireOperator rejects non-operators. It MUST be used after LoadIdentity.
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsOperator(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: operator access required"})
			return
		}
		c.Next()
	}
}
