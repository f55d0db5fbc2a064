package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/machine-booking-backend/internal/auth"
	"github.com/nekogravitycat/machine-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/machine-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/machine-booking-backend/internal/reservation"
)

type Handler struct {
	service reservation.Service
}

func NewHandler(service reservation.Service) *Handler {
	return &Handler{service: service}
}

// List returns reservations. Non-operators only ever see their own.
func (h *Handler) List(c *gin.Context) {
	var req ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	req.Normalize()

	filter := reservation.Filter{
		RequesterID: req.RequesterID,
		ResourceID:  req.ResourceID,
		Status:      reservation.Status(req.Status),
		From:        req.From,
		To:          req.To,
		Page:        req.Page,
		PageSize:    req.PageSize,
		SortBy:      req.SortBy,
		SortOrder:   strings.ToUpper(req.SortOrder),
	}
	if !auth.IsOperator(c) {
		filter.RequesterID = auth.GetUserID(c)
	}

	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := make([]ReservationResponse, len(items))
	for i, r := range items {
		resp[i] = NewReservationResponse(r)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(resp, req.Page, req.PageSize, total))
}

// Get returns one reservation to its requester or an operator.
func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID", err)
		return
	}

	r, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Hide other requesters' reservations instead of confirming they exist.
	if !auth.IsOperator(c) && r.RequesterID != auth.GetUserID(c) {
		response.Error(c, reservation.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(r))
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	end, err := req.End()
	if err != nil {
		response.Error(c, err)
		return
	}

	r, err := h.service.RequestBooking(c.Request.Context(), reservation.BookingRequest{
		ResourceID:  req.ResourceID,
		RequesterID: auth.GetUserID(c),
		StartTime:   req.StartTime,
		EndTime:     end,
	})
	if err != nil {
		var overlap *reservation.OverlapError
		if errors.As(err, &overlap) {
			response.ErrorWithDetails(c, err, ConflictResponse{
				ReservationID: overlap.ReservationID,
				StartTime:     overlap.StartTime,
				EndTime:       overlap.EndTime,
			})
			return
		}
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewReservationResponse(r))
}

func (h *Handler) Verify(c *gin.Context) {
	h.transition(c, h.service.Verify)
}

func (h *Handler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, id string, actorIsOperator bool) (*reservation.Reservation, error)) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID", err)
		return
	}

	r, err := fn(c.Request.Context(), uri.ID, auth.IsOperator(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(r))
}

// Cancel withdraws a pending or confirmed reservation.
func (h *Handler) Cancel(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID", err)
		return
	}

	if err := h.service.Cancel(c.Request.Context(), uri.ID, auth.GetUserID(c), auth.IsOperator(c)); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
