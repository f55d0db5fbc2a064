package reservation

import (
	"time"
)

// Policy holds the booking rules checked before a request reaches the store.
type Policy struct {
	// Location is the business time zone the operating window is expressed in.
	Location *time.Location
	// Opening and Closing are offsets from local midnight.
	Opening time.Duration
	Closing time.Duration
	// AllowedDurations is the fixed set of bookable lengths.
	AllowedDurations []time.Duration
}

// DefaultPolicy is 07:00-22:00 local time with the standard duration menu.
func DefaultPolicy() Policy {
	return Policy{
		Location: time.Local,
		Opening:  7 * time.Hour,
		Closing:  22 * time.Hour,
		AllowedDurations: []time.Duration{
			30 * time.Minute, 60 * time.Minute, 90 * time.Minute, 120 * time.Minute,
			180 * time.Minute, 240 * time.Minute, 360 * time.Minute, 480 * time.Minute,
		},
	}
}

// Check validates [start, end) against the operating window and the allowed
// durations. Callers must already have checked start < end.
func (p Policy) Check(start, end time.Time) error {
	if !p.WithinHours(start, end) {
		return ErrOutOfHours
	}
	if !p.AllowedDuration(end.Sub(start)) {
		return ErrInvalidDuration
	}
	return nil
}

// WithinHours reports whether both instants fall inside the operating window
// of start's local business day. Closing time itself is a valid end.
func (p Policy) WithinHours(start, end time.Time) bool {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	open := clockOn(start.In(loc), p.Opening)
	closing := clockOn(start.In(loc), p.Closing)
	return !start.Before(open) && !end.After(closing)
}

// AllowedDuration reports whether d is in the duration menu.
func (p Policy) AllowedDuration(d time.Duration) bool {
	for _, a := range p.AllowedDurations {
		if d == a {
			return true
		}
	}
	return false
}

// clockOn returns the instant at offset past midnight on day's calendar date,
// built from wall-clock fields so DST days keep their nominal hours.
func clockOn(day time.Time, offset time.Duration) time.Time {
	h := int(offset / time.Hour)
	m := int(offset % time.Hour / time.Minute)
	s := int(offset % time.Minute / time.Second)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, day.Location())
}
