package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/machine-booking-backend/internal/pkg/apperror"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// Error sends a JSON error response.
// AppErrors are rendered with their own status code and message. Anything else
// is attached to the gin context for the error logger and rendered as a 500.
func Error(c *gin.Context, err error) {
	ErrorWithDetails(c, err, nil)
}

// ErrorWithDetails is Error with an extra payload for the client.
func ErrorWithDetails(c *gin.Context, err error, details any) {
	if appErr, ok := apperror.As(err); ok {
		if appErr.Code >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.JSON(appErr.Code, ErrorResponse{Error: appErr.Message, Details: details})
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// BadRequest responds 400 for payloads that fail binding.
func BadRequest(c *gin.Context, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}
