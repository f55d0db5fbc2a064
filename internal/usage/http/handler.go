package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/machine-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/machine-booking-backend/internal/reservation"
	"github.com/nekogravitycat/machine-booking-backend/internal/usage"
)

type Handler struct {
	service usage.Service
}

func NewHandler(service usage.Service) *Handler {
	return &Handler{service: service}
}

// Report returns booked hours per machine and per requester.
func (h *Handler) Report(c *gin.Context) {
	var req UsageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		response.Error(c, reservation.ErrInvalidTimeRange)
		return
	}

	report, err := h.service.Report(c.Request.Context(), usage.Filter{
		ResourceID: req.ResourceID,
		From:       req.From,
		To:         req.To,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewUsageResponse(report))
}
