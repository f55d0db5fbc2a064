package reservation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/machine-booking-backend/internal/resource"
)

// BookingRequest is a proposed window on a resource. RequesterID comes from
// the caller's identity, never from the request body.
type BookingRequest struct {
	ResourceID  string
	RequesterID string
	StartTime   time.Time
	EndTime     time.Time
}

// CancelMode decides what Cancel does with the record.
type CancelMode string

const (
	// CancelRetain keeps the row with status cancelled.
	CancelRetain CancelMode = "retain"
	// CancelDelete removes the row.
	CancelDelete CancelMode = "delete"
)

// Observer receives the outcome of every scheduler operation.
type Observer interface {
	BookingAttempt(outcome string)
	Transition(action, outcome string)
}

type nopObserver struct{}

func (nopObserver) BookingAttempt(string)     {}
func (nopObserver) Transition(string, string) {}

// Options configure the scheduler. Zero values fall back to defaults; a
// Policy without durations is replaced by DefaultPolicy.
type Options struct {
	Policy     Policy
	CancelMode CancelMode
	Now        func() time.Time
	Logger     *zap.Logger
	Observer   Observer
}

// Service is the reservation scheduler. Identity and privilege are explicit
// arguments; the service never reads them from ambient state.
type Service interface {
	RequestBooking(ctx context.Context, req BookingRequest) (*Reservation, error)
	Verify(ctx context.Context, id string, actorIsOperator bool) (*Reservation, error)
	Complete(ctx context.Context, id string, actorIsOperator bool) (*Reservation, error)
	Cancel(ctx context.Context, id string, actorID string, actorIsOperator bool) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)
	Snapshot(ctx context.Context, filter Filter) ([]*Reservation, error)
}

type service struct {
	repo       Repository
	resService resource.Service
	policy     Policy
	cancelMode CancelMode
	now        func() time.Time
	logger     *zap.Logger
	observer   Observer
}

func NewService(repo Repository, resService resource.Service, opts Options) Service {
	s := &service{
		repo:       repo,
		resService: resService,
		policy:     opts.Policy,
		cancelMode: opts.CancelMode,
		now:        opts.Now,
		logger:     opts.Logger,
		observer:   opts.Observer,
	}
	if len(s.policy.AllowedDurations) == 0 {
		s.policy = DefaultPolicy()
	}
	if s.cancelMode == "" {
		s.cancelMode = CancelRetain
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	s.logger = s.logger.Named("scheduler")
	return s
}

func (s *service) RequestBooking(ctx context.Context, req BookingRequest) (*Reservation, error) {
	b, err := s.admit(ctx, req)

	outcome := Outcome(err)
	s.observer.BookingAttempt(outcome)

	fields := []zap.Field{
		zap.String("resource_id", req.ResourceID),
		zap.String("requester_id", req.RequesterID),
		zap.Time("start", req.StartTime),
		zap.Time("end", req.EndTime),
	}
	switch outcome {
	case "ok":
		s.logger.Info("reservation admitted", append(fields, zap.String("reservation_id", b.ID))...)
	case "store_error", "error":
		s.logger.Error("reservation admission failed", append(fields, zap.Error(err))...)
	default:
		s.logger.Debug("reservation rejected", append(fields, zap.String("reason", outcome))...)
	}

	return b, err
}

func (s *service) admit(ctx context.Context, req BookingRequest) (*Reservation, error) {
	// 1. Validate Time Range
	if !req.StartTime.Before(req.EndTime) {
		return nil, ErrInvalidTimeRange
	}
	if req.StartTime.Before(s.now()) {
		return nil, ErrStartTimePast
	}

	// 2. Operating window and duration menu
	if err := s.policy.Check(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	// 3. Resource exists and is bookable
	res, err := s.resService.GetByID(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, storeError("get resource", err)
	}
	if !res.Bookable() {
		return nil, ErrResourceUnavailable
	}

	start := req.StartTime.UTC()
	end := req.EndTime.UTC()
	b := &Reservation{
		ResourceID:      req.ResourceID,
		RequesterID:     req.RequesterID,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: int(end.Sub(start) / time.Minute),
		Status:          StatusPending,
	}

	// 4. Overlap check and insert, indivisible per resource
	err = s.repo.Exclusive(ctx, req.ResourceID, func(ctx context.Context, tx Repository) error {
		conflicts, err := tx.FindOverlapping(ctx, req.ResourceID, start, end, ActiveStatuses)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			c := conflicts[0]
			return &OverlapError{ReservationID: c.ID, StartTime: c.StartTime, EndTime: c.EndTime}
		}
		return tx.Insert(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	b.ResourceName = res.Name
	return b, nil
}

func (s *service) Verify(ctx context.Context, id string, actorIsOperator bool) (*Reservation, error) {
	return s.transition(ctx, "verify", id, actorIsOperator, StatusPending, StatusConfirmed)
}

func (s *service) Complete(ctx context.Context, id string, actorIsOperator bool) (*Reservation, error) {
	return s.transition(ctx, "complete", id, actorIsOperator, StatusConfirmed, StatusCompleted)
}

func (s *service) transition(ctx context.Context, action, id string, actorIsOperator bool, from, to Status) (*Reservation, error) {
	var (
		b   *Reservation
		err error
	)
	if !actorIsOperator {
		err = ErrPermissionDenied
	} else {
		b, err = s.repo.UpdateStatus(ctx, id, []Status{from}, to)
	}

	s.observeTransition(action, id, err)
	return b, err
}

func (s *service) Cancel(ctx context.Context, id string, actorID string, actorIsOperator bool) error {
	err := s.cancel(ctx, id, actorID, actorIsOperator)
	s.observeTransition("cancel", id, err)
	return err
}

func (s *service) cancel(ctx context.Context, id string, actorID string, actorIsOperator bool) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	// Owner of the reservation or an operator
	if !actorIsOperator && b.RequesterID != actorID {
		return ErrPermissionDenied
	}

	if s.cancelMode == CancelDelete {
		return s.repo.Delete(ctx, id, ActiveStatuses)
	}
	_, err = s.repo.UpdateStatus(ctx, id, ActiveStatuses, StatusCancelled)
	return err
}

func (s *service) observeTransition(action, id string, err error) {
	outcome := Outcome(err)
	s.observer.Transition(action, outcome)

	switch outcome {
	case "ok":
		s.logger.Info("reservation "+action, zap.String("reservation_id", id))
	case "store_error", "error":
		s.logger.Error("reservation "+action+" failed", zap.String("reservation_id", id), zap.Error(err))
	default:
		s.logger.Debug("reservation "+action+" rejected", zap.String("reservation_id", id), zap.String("reason", outcome))
	}
}

func (s *service) GetByID(ctx context.Context, id string) (*Reservation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Snapshot(ctx context.Context, filter Filter) ([]*Reservation, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.Snapshot(ctx, filter)
}
