package usage

import "time"

// Fallback labels for reservations whose display name could not be joined.
const (
	UnknownResource  = "Unknown resource"
	UnknownRequester = "Unknown requester"
)

// Summary is total booked hours for one resource or requester, rounded to
// one decimal place.
type Summary struct {
	Name  string
	Hours float64
}

// Report is the usage of a reservation snapshot, both breakdowns sorted by
// hours descending.
type Report struct {
	PerResource  []Summary
	PerRequester []Summary
	Reservations int
}

// Filter narrows the snapshot a Report is computed over.
type Filter struct {
	ResourceID string
	From       *time.Time
	To         *time.Time
}
