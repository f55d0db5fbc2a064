package http

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/machine-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/machine-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/machine-booking-backend/internal/reservation"
	resHttp "github.com/nekogravitycat/machine-booking-backend/internal/resource/http"
	userHttp "github.com/nekogravitycat/machine-booking-backend/internal/user/http"
)

// ListReservationsRequest defines query parameters for listing reservations.
type ListReservationsRequest struct {
	request.ListParams
	ResourceID  string     `form:"resource_id" binding:"omitempty,uuid"`
	RequesterID string     `form:"requester_id" binding:"omitempty,uuid"`
	Status      string     `form:"status" binding:"omitempty,oneof=pending confirmed completed cancelled"`
	From        *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To          *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	SortBy      string     `form:"sort_by" binding:"omitempty,oneof=start_time end_time created_at status"`
}

// Validate performs custom validation for ListReservationsRequest.
func (r *ListReservationsRequest) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return reservation.ErrInvalidTimeRange
	}
	return nil
}

// CreateReservationRequest asks for a window on a machine. The window ends
// either at end_time or duration_minutes after start_time.
type CreateReservationRequest struct {
	ResourceID      string     `json:"resource_id" binding:"required,uuid"`
	StartTime       time.Time  `json:"start_time" binding:"required"`
	EndTime         *time.Time `json:"end_time"`
	DurationMinutes *int       `json:"duration_minutes" binding:"omitempty,min=1"`
}

var errEndOrDuration = apperror.New(http.StatusBadRequest, "exactly one of end_time or duration_minutes is required")

// End resolves the requested end of the window.
func (r *CreateReservationRequest) End() (time.Time, error) {
	switch {
	case r.EndTime != nil && r.DurationMinutes == nil:
		return *r.EndTime, nil
	case r.EndTime == nil && r.DurationMinutes != nil:
		return r.StartTime.Add(time.Duration(*r.DurationMinutes) * time.Minute), nil
	default:
		return time.Time{}, errEndOrDuration
	}
}

type ReservationResponse struct {
	ID              string              `json:"id"`
	Resource        resHttp.ResourceTag `json:"resource"`
	Requester       userHttp.UserTag    `json:"requester"`
	StartTime       time.Time           `json:"start_time"`
	EndTime         time.Time           `json:"end_time"`
	DurationMinutes int                 `json:"duration_minutes"`
	Status          string              `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:              r.ID,
		Resource:        resHttp.ResourceTag{ID: r.ResourceID, Name: r.ResourceName},
		Requester:       userHttp.UserTag{ID: r.RequesterID, Name: r.RequesterName},
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationMinutes: r.DurationMinutes,
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// ConflictResponse describes the reservation that blocked a booking.
type ConflictResponse struct {
	ReservationID string    `json:"reservation_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}
