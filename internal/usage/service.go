package usage

import (
	"context"

	"go.uber.org/zap"

	"github.com/nekogravitycat/machine-booking-backend/internal/reservation"
)

// Snapshotter is the read side of the scheduler the report is built from.
type Snapshotter interface {
	Snapshot(ctx context.Context, filter reservation.Filter) ([]*reservation.Reservation, error)
}

// Service produces usage reports from a reservation snapshot.
type Service interface {
	Report(ctx context.Context, filter Filter) (*Report, error)
}

type service struct {
	reservations Snapshotter
	logger       *zap.Logger
}

func NewService(reservations Snapshotter, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{reservations: reservations, logger: logger.Named("usage")}
}

func (s *service) Report(ctx context.Context, filter Filter) (*Report, error) {
	snapshot, err := s.reservations.Snapshot(ctx, reservation.Filter{
		ResourceID: filter.ResourceID,
		From:       filter.From,
		To:         filter.To,
	})
	if err != nil {
		return nil, err
	}

	perResource, perRequester := ComputeUsage(snapshot)
	s.logger.Debug("usage report computed",
		zap.Int("reservations", len(snapshot)),
		zap.Int("resources", len(perResource)),
		zap.Int("requesters", len(perRequester)),
	)

	return &Report{
		PerResource:  perResource,
		PerRequester: perRequester,
		Reservations: len(snapshot),
	}, nil
}
