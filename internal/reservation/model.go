package reservation

import (
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ActiveStatuses are the statuses that hold a claim on the resource. Only these
// take part in the overlap check.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether s is one of ActiveStatuses.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Reservation is a time-bounded claim on one resource by one requester.
// ResourceName and RequesterName are display fields joined on read; the
// reservation only owns the ids.
type Reservation struct {
	ID              string
	ResourceID      string
	ResourceName    string
	RequesterID     string
	RequesterName   string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Duration is the length of the booked interval.
func (r *Reservation) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Overlaps reports whether [StartTime, EndTime) intersects [start, end).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && start.Before(r.EndTime)
}

// Filter defines parameters for listing reservations.
type Filter struct {
	RequesterID string
	ResourceID  string
	Status      Status
	From        *time.Time // reservations ending at or after this instant
	To          *time.Time // reservations starting at or before this instant
	Page        int
	PageSize    int
	SortBy      string // start_time, end_time, created_at, status
	SortOrder   string // ASC or DESC
}

// Sortable columns for Filter.SortBy.
var SortColumns = []string{"start_time", "end_time", "created_at", "status"}

func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	valid := false
	for _, c := range SortColumns {
		if f.SortBy == c {
			valid = true
			break
		}
	}
	if !valid {
		f.SortBy = "start_time"
	}
	if f.SortOrder != "ASC" && f.SortOrder != "asc" {
		f.SortOrder = "DESC"
	} else {
		f.SortOrder = "ASC"
	}
}
