package resource

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/machine-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound      = apperror.New(http.StatusNotFound, "resource not found")
	ErrInvalidStatus = apperror.New(http.StatusBadRequest, "invalid resource status")
)

// Status is the availability state of a machine.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusMaintenance Status = "maintenance"
	StatusUnavailable Status = "unavailable"
	StatusRetired     Status = "retired"
)

// ValidStatuses lists every availability state in display order.
var ValidStatuses = []Status{StatusAvailable, StatusMaintenance, StatusUnavailable, StatusRetired}

// Valid reports whether s is a known availability state.
func (s Status) Valid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Resource represents a bookable machine.
type Resource struct {
	ID           string
	Name         string
	Model        string
	Status       Status
	DisplayOrder int
	CreatedAt    time.Time
}

// Bookable reports whether new reservations may be admitted on the resource.
func (r *Resource) Bookable() bool {
	return r.Status == StatusAvailable
}

// Filter defines parameters for listing resources.
type Filter struct {
	Status   Status
	Page     int
	PageSize int
}
