package usage

import (
	"math"
	"sort"

	"github.com/nekogravitycat/machine-booking-backend/internal/reservation"
)

// ComputeUsage sums booked hours per resource name and per requester name.
// Cancelled reservations hold no time and are skipped. Names with no hours
// are omitted. Both results are sorted by hours descending, keeping
// first-seen order among equal values.
func ComputeUsage(reservations []*reservation.Reservation) (perResource, perRequester []Summary) {
	byResource := newTally()
	byRequester := newTally()

	for _, r := range reservations {
		if r == nil || r.Status == reservation.StatusCancelled {
			continue
		}
		hours := r.Duration().Hours()
		if hours <= 0 {
			continue
		}
		byResource.add(nameOr(r.ResourceName, UnknownResource), hours)
		byRequester.add(nameOr(r.RequesterName, UnknownRequester), hours)
	}

	return byResource.summaries(), byRequester.summaries()
}

// tally accumulates hours per name and remembers insertion order.
type tally struct {
	order []string
	hours map[string]float64
}

func newTally() *tally {
	return &tally{hours: make(map[string]float64)}
}

func (t *tally) add(name string, hours float64) {
	if _, ok := t.hours[name]; !ok {
		t.order = append(t.order, name)
	}
	t.hours[name] += hours
}

func (t *tally) summaries() []Summary {
	out := make([]Summary, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, Summary{Name: name, Hours: roundTenth(t.hours[name])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Hours > out[j].Hours
	})
	return out
}

func roundTenth(h float64) float64 {
	return math.Round(h*10) / 10
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
