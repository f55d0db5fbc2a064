package http

import (
	"time"

	"github.com/nekogravitycat/machine-booking-backend/internal/usage"
)

// UsageRequest defines query parameters for the usage report.
type UsageRequest struct {
	ResourceID string     `form:"resource_id" binding:"omitempty,uuid"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

type SummaryResponse struct {
	Name  string  `json:"name"`
	Hours float64 `json:"hours"`
}

type UsageResponse struct {
	PerResource  []SummaryResponse `json:"per_resource"`
	PerRequester []SummaryResponse `json:"per_requester"`
	Reservations int               `json:"reservations"`
}

func NewUsageResponse(r *usage.Report) UsageResponse {
	return UsageResponse{
		PerResource:  summaries(r.PerResource),
		PerRequester: summaries(r.PerRequester),
		Reservations: r.Reservations,
	}
}

func summaries(in []usage.Summary) []SummaryResponse {
	out := make([]SummaryResponse, len(in))
	for i, s := range in {
		out[i] = SummaryResponse{Name: s.Name, Hours: s.Hours}
	}
	return out
}
