package reservation

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nekogravitycat/machine-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound            = apperror.New(http.StatusNotFound, "reservation not found")
	ErrInvalidTimeRange    = apperror.New(http.StatusBadRequest, "start time must be before end time")
	ErrStartTimePast       = apperror.New(http.StatusBadRequest, "cannot create reservation in the past")
	ErrInvalidStatus       = apperror.New(http.StatusBadRequest, "invalid reservation status")
	ErrOutOfHours          = apperror.New(http.StatusUnprocessableEntity, "reservation must fall within operating hours")
	ErrInvalidDuration     = apperror.New(http.StatusUnprocessableEntity, "reservation duration is not allowed")
	ErrResourceUnavailable = apperror.New(http.StatusConflict, "resource is not available for booking")
	ErrOverlap             = apperror.New(http.StatusConflict, "time slot already booked")
	ErrPermissionDenied    = apperror.New(http.StatusForbidden, "permission denied")
	ErrInvalidTransition   = apperror.New(http.StatusUnprocessableEntity, "invalid status transition")

	// ErrResourceNotFound is a ResourceUnavailable with its own status and message.
	ErrResourceNotFound = apperror.Wrap(ErrResourceUnavailable, http.StatusNotFound, "resource not found")
)

// OverlapError reports the active reservation that blocked a booking.
type OverlapError struct {
	ReservationID string
	StartTime     time.Time
	EndTime       time.Time
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: conflicts with reservation %s [%s, %s)",
		ErrOverlap.Message, e.ReservationID,
		e.StartTime.Format(time.RFC3339), e.EndTime.Format(time.RFC3339))
}

func (e *OverlapError) Unwrap() error {
	return ErrOverlap
}

// StoreError wraps a persistence failure. It is returned unchanged to the
// caller and never retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("reservation store: %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// Outcome classifies err into a short label for metrics and logs.
func Outcome(err error) string {
	var storeErr *StoreError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrOverlap):
		return "overlap"
	case errors.Is(err, ErrOutOfHours):
		return "out_of_hours"
	case errors.Is(err, ErrInvalidDuration):
		return "invalid_duration"
	case errors.Is(err, ErrResourceUnavailable):
		return "resource_unavailable"
	case errors.Is(err, ErrInvalidTimeRange), errors.Is(err, ErrStartTimePast):
		return "invalid_time"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &storeErr):
		return "store_error"
	default:
		return "error"
	}
}
