package http

import (
	"time"

	"github.com/nekogravitycat/machine-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/machine-booking-backend/internal/resource"
)

// ListResourcesRequest defines query parameters for listing resources.
type ListResourcesRequest struct {
	request.ListParams
	Status string `form:"status" binding:"omitempty,oneof=available maintenance unavailable retired"`
}

type ResourceResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Model        string    `json:"model"`
	Status       string    `json:"status"`
	Bookable     bool      `json:"bookable"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// ResourceTag is a brief representation of a resource embedded in other responses.
type ResourceTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewResponse(r *resource.Resource) ResourceResponse {
	return ResourceResponse{
		ID:           r.ID,
		Name:         r.Name,
		Model:        r.Model,
		Status:       string(r.Status),
		Bookable:     r.Bookable(),
		DisplayOrder: r.DisplayOrder,
		CreatedAt:    r.CreatedAt,
	}
}
