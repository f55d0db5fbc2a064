package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/machine-booking-backend/internal/resource"
)

var bookingDay = time.Date(2030, time.March, 4, 0, 0, 0, 0, time.UTC)

// at returns hh:mm on the booking day.
func at(h, m int) time.Time {
	return bookingDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type recordingObserver struct {
	mu          sync.Mutex
	bookings    []string
	transitions []string
}

func (o *recordingObserver) BookingAttempt(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bookings = append(o.bookings, outcome)
}

func (o *recordingObserver) Transition(action, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, action+":"+outcome)
}

type fixture struct {
	svc       Service
	repo      *MemoryRepository
	observer  *recordingObserver
	machine   string
	lathe     string
	inRepair  string
	requester string
	stranger  string
}

func newFixture(t *testing.T, mode CancelMode) *fixture {
	t.Helper()

	resources := resource.NewMemoryRepository(
		&resource.Resource{ID: "11111111-1111-1111-1111-111111111111", Name: "Laser Cutter", Status: resource.StatusAvailable},
		&resource.Resource{ID: "22222222-2222-2222-2222-222222222222", Name: "Lathe", Status: resource.StatusAvailable},
		&resource.Resource{ID: "33333333-3333-3333-3333-333333333333", Name: "3D Printer", Status: resource.StatusMaintenance},
	)
	resService := resource.NewService(resources)

	repo := NewMemoryRepository(func(ctx context.Context, r *Reservation) {
		if res, err := resources.GetByID(ctx, r.ResourceID); err == nil {
			r.ResourceName = res.Name
		}
	})

	policy := DefaultPolicy()
	policy.Location = time.UTC

	observer := &recordingObserver{}
	svc := NewService(repo, resService, Options{
		Policy:     policy,
		CancelMode: mode,
		Now:        func() time.Time { return bookingDay.Add(-72 * time.Hour) },
		Observer:   observer,
	})

	return &fixture{
		svc:       svc,
		repo:      repo,
		observer:  observer,
		machine:   "11111111-1111-1111-1111-111111111111",
		lathe:     "22222222-2222-2222-2222-222222222222",
		inRepair:  "33333333-3333-3333-3333-333333333333",
		requester: "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa",
		stranger:  "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb",
	}
}

func (f *fixture) book(t *testing.T, start, end time.Time) *Reservation {
	t.Helper()
	b, err := f.svc.RequestBooking(context.Background(), BookingRequest{
		ResourceID:  f.machine,
		RequesterID: f.requester,
		StartTime:   start,
		EndTime:     end,
	})
	require.NoError(t, err)
	return b
}

func TestRequestBookingRoundTrip(t *testing.T) {
	f := newFixture(t, CancelRetain)
	ctx := context.Background()

	b := f.book(t, at(9, 0), at(10, 30))
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, 90, b.DurationMinutes)
	assert.Equal(t, "Laser Cutter", b.ResourceName)

	items, total, err := f.svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, StatusPending, items[0].Status)
	assert.Equal(t, "Laser Cutter", items[0].ResourceName)

	pending, _, err := f.svc.List(ctx, Filter{Status: StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	confirmed, _, err := f.svc.List(ctx, Filter{Status: StatusConfirmed})
	require.NoError(t, err)
	assert.Empty(t, confirmed)

	assert.Equal(t, []string{"ok"}, f.observer.bookings)
}

func TestRequestBookingOverlap(t *testing.T) {
	f := newFixture(t, CancelRetain)
	first := f.book(t, at(9, 0), at(10, 0))

	_, err := f.svc.RequestBooking(context.Background(), BookingRequest{
		ResourceID:  f.machine,
		RequesterID: f.stranger,
		StartTime:   at(9, 30),
		EndTime:     at(10, 0),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverlap)

	var overlapErr *OverlapError
	require.True(t, errors.As(err, &overlapErr))
	assert.Equal(t, first.ID, overlapErr.ReservationID)
	assert.True(t, overlapErr.StartTime.Equal(at(9, 0)))
	assert.True(t, overlapErr.EndTime.Equal(at(10, 0)))

	assert.Equal(t, []string{"ok", "overlap"}, f.observer.bookings)
}

func TestRequestBookingAdjacentIntervalsDoNotConflict(t *testing.T) {
	f := newFixture(t, CancelRetain)
	f.book(t, at(9, 0), at(10, 0))
	f.book(t, at(10, 0), at(11, 0))
	f.book(t, at(8, 0), at(9, 0))

	_, total, err := f.svc.List(context.Background(), Filter{ResourceID: f.machine})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestRequestBookingOtherResourceDoesNotConflict(t *testing.T) {
	f := newFixture(t, CancelRetain)
	f.book(t, at(9, 0), at(10, 0))

	_, err := f.svc.RequestBooking(context.Background(), BookingRequest{
		ResourceID:  f.lathe,
		RequesterID: f.requester,
		StartTime:   at(9, 0),
		EndTime:     at(10, 0),
	})
	assert.NoError(t, err)
}

func TestRequestBookingOperatingWindowBoundaries(t *testing.T) {
	f := newFixture(t, CancelRetain)
	ctx := context.Background()

	// Minimum duration at opening and maximum duration ending at closing.
	f.book(t, at(7, 0), at(7, 30))
	f.book(t, at(14, 0), at(22, 0))

	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"starts before opening", at(6, 59), at(7, 29)},
		{"ends after closing", at(21, 31), at(22, 1)},
		{"crosses midnight", at(23, 0), at(24, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RequestBooking(ctx, BookingRequest{
				ResourceID:  f.lathe,
				RequesterID: f.requester,
				StartTime:   tc.start,
				EndTime:     tc.end,
			})
			assert.ErrorIs(t, err, ErrOutOfHours)
		})
	}
}

func TestRequestBookingOperatingWindowUsesBusinessTimezone(t *testing.T) {
	f := newFixture(t, CancelRetain)
	zone := time.FixedZone("UTC-6", -6*60*60)

	policy := DefaultPolicy()
	policy.Location = zone
	f.svc = NewService(f.repo, resource.NewService(resource.NewMemoryRepository(
		&resource.Resource{ID: f.machine, Name: "Laser Cutter"},
	)), Options{Policy: policy, Now: func() time.Time { return bookingDay.Add(-72 * time.Hour) }})

	// 07:00 local is 13:00 UTC.
	_, err := f.svc.RequestBooking(context.Background(), BookingRequest{
		ResourceID: f.machine, RequesterID: f.requester,
		StartTime: at(7, 0), EndTime: at(8, 0),
	})
	assert.ErrorIs(t, err, ErrOutOfHours)

	_, err = f.svc.RequestBooking(context.Background(), BookingRequest{
		ResourceID: f.machine, RequesterID: f.requester,
		StartTime: at(13, 0), EndTime: at(14, 0),
	})
	assert.NoError(t, err)
}

func TestRequestBookingValidation(t *testing.T) {
	f := newFixture(t, CancelRetain)
	ctx := context.Background()

	cases := []struct {
		name       string
		resourceID string
		start, end time.Time
		want       error
	}{
		{"end before start", f.machine, at(10, 0), at(9, 0), ErrInvalidTimeRange},
		{"empty interval", f.machine, at(10, 0), at(10, 0), ErrInvalidTimeRange},
		{"start in the past", f.machine, bookingDay.Add(-96*time.Hour + 9*time.Hour), bookingDay.Add(-96*time.Hour + 10*time.Hour), ErrStartTimePast},
		{"duration not on the menu", f.machine, at(9, 0), at(9, 45), ErrInvalidDuration},
		{"resource in maintenance", f.inRepair, at(9, 0), at(10, 0), ErrResourceUnavailable},
		{"resource missing", "99999999-9999-9999-9999-999999999999", at(9, 0), at(10, 0), ErrResourceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := f.svc.RequestBooking(ctx, BookingRequest{
				ResourceID:  tc.resourceID,
				RequesterID: f.requester,
				StartTime:   tc.start,
				EndTime:     tc.end,
			})
			assert.Nil(t, b)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, total, err := f.svc.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Zero(t, total, "rejected requests must not persist anything")

	_, err = f.svc.RequestBooking(ctx, BookingRequest{
		ResourceID: "99999999-9999-9999-9999-999999999999", RequesterID: f.requester,
		StartTime: at(9, 0), EndTime: at(10, 0),
	})
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestRequestBookingIgnoresHistoricalReservations(t *testing.T) {
	f := newFixture(t, CancelRetain)
	ctx := context.Background()

	done := f.book(t, at(9, 0), at(10, 0))
	_, err := f.svc.Verify(ctx, done.ID, true)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, done.ID, true)
	require.NoError(t, err)

	cancelled := f.book(t, at(9, 0), at(10, 0))
	require.NoError(t, f.svc.Cancel(ctx, cancelled.ID, f.requester, false))

	// Completed and cancelled reservations no longer hold the slot.
	f.book(t, at(9, 0), at(10, 0))
}

func TestTransitions(t *testing.T) {
	f := newFixture(t, CancelRetain)
	ctx := context.Background()
	b := f.book(t, at(9, 0), at(10, 0))

	_, err := f.svc.Complete(ctx, b.ID, true)
	assert.ErrorIs(t, err, ErrInvalidTransition, "complete requires confirmed")

	confirmed, err := f.svc.Verify(ctx, b.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	_, err = f.svc.Verify(ctx, b.ID, true)
	assert.ErrorIs(t, err, ErrInvalidTransition, "verify requires pending")

	completed, err := f.svc.Complete(ctx, b.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	_, err = f.svc.Verify(ctx, b.ID, true)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Complete(ctx, b.ID, true)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = f.svc.Cancel(ctx, b.ID, f.requester, false)
	assert.ErrorIs(t, err, ErrInvalidTransition, "completed is terminal")

	_, err = f.svc.Verify(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Contains(t, f.observer.transitions, "verify:ok")
	assert.Contains(t, f.observer.transitions, "complete:invalid_transition")
}

func TestTransitionsRequireOperator(t *testing.T) {
	f := newFixture(t, CancelRetain)
	ctx := context.Background()
	b := f.book(t, at(9, 0), at(10, 0))

	_, err := f.svc.Verify(ctx, b.ID, false)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.svc.Verify(ctx, b.ID, true)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, b.ID, false)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	got, err := f.svc.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestCancelRetainsRecord(t *testing.T) {
	f := newFixture(t, CancelRetain)
	ctx := context.Background()
	b := f.book(t, at(9, 0), at(10, 0))

	err := f.svc.Cancel(ctx, b.ID, f.stranger, false)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, f.svc.Cancel(ctx, b.ID, f.requester, false))

	got, err := f.svc.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	err = f.svc.Cancel(ctx, b.ID, f.requester, false)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = f.svc.Cancel(ctx, "missing", f.requester, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelByOperator(t *testing.T) {
	f := newFixture(t, CancelRetain)
	ctx := context.Background()
	b := f.book(t, at(9, 0), at(10, 0))

	_, err := f.svc.Verify(ctx, b.ID, true)
	require.NoError(t, err)

	// A confirmed reservation can still be cancelled, here by an operator who does not own it.
	require.NoError(t, f.svc.Cancel(ctx, b.ID, f.stranger, true))
}

func TestCancelDeleteMode(t *testing.T) {
	f := newFixture(t, CancelDelete)
	ctx := context.Background()
	b := f.book(t, at(9, 0), at(10, 0))

	require.NoError(t, f.svc.Cancel(ctx, b.ID, f.requester, false))

	_, err := f.svc.GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.svc.Cancel(ctx, b.ID, f.requester, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentAdmissionSameInterval(t *testing.T) {
	f := newFixture(t, CancelRetain)
	ctx := context.Background()

	const attempts = 16
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		mu      sync.Mutex
		success int
		overlap int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.RequestBooking(ctx, BookingRequest{
				ResourceID:  f.machine,
				RequesterID: f.requester,
				StartTime:   at(12, 0),
				EndTime:     at(13, 0),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrOverlap):
				overlap++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, attempts-1, overlap)
}

func TestConcurrentAdmissionKeepsNoOverlapInvariant(t *testing.T) {
	f := newFixture(t, CancelRetain)
	ctx := context.Background()

	durations := []time.Duration{30 * time.Minute, 60 * time.Minute, 90 * time.Minute, 120 * time.Minute}
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			s := at(7, 0).Add(time.Duration(i%24) * 30 * time.Minute)
			_, _ = f.svc.RequestBooking(ctx, BookingRequest{
				ResourceID:  f.machine,
				RequesterID: f.requester,
				StartTime:   s,
				EndTime:     s.Add(durations[i%len(durations)]),
			})
		}(i)
	}
	close(start)
	wg.Wait()

	items, total, err := f.svc.List(ctx, Filter{ResourceID: f.machine, PageSize: 100})
	require.NoError(t, err)
	require.NotZero(t, total)
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			assert.False(t, items[i].Overlaps(items[j].StartTime, items[j].EndTime),
				"reservations %s and %s overlap", items[i].ID, items[j].ID)
		}
	}
}

type failingRepository struct {
	*MemoryRepository
	err error
}

func (r *failingRepository) Exclusive(ctx context.Context, resourceID string, fn func(ctx context.Context, tx Repository) error) error {
	return r.MemoryRepository.Exclusive(ctx, resourceID, func(ctx context.Context, tx Repository) error {
		return fn(ctx, &failingRepository{MemoryRepository: r.MemoryRepository, err: r.err})
	})
}

func (r *failingRepository) FindOverlapping(context.Context, string, time.Time, time.Time, []Status) ([]*Reservation, error) {
	return nil, storeError("find overlapping", r.err)
}

func TestRequestBookingSurfacesStoreError(t *testing.T) {
	f := newFixture(t, CancelRetain)
	cause := errors.New("connection reset")
	repo := &failingRepository{MemoryRepository: f.repo, err: cause}

	policy := DefaultPolicy()
	policy.Location = time.UTC
	svc := NewService(repo, resource.NewService(resource.NewMemoryRepository(
		&resource.Resource{ID: f.machine, Name: "Laser Cutter"},
	)), Options{Policy: policy, Now: func() time.Time { return bookingDay.Add(-72 * time.Hour) }})

	_, err := svc.RequestBooking(context.Background(), BookingRequest{
		ResourceID: f.machine, RequesterID: f.requester,
		StartTime: at(9, 0), EndTime: at(10, 0),
	})
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store_error", Outcome(err))

	_, total, err := f.repo.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, CancelRetain)
	_, _, err := f.svc.List(context.Background(), Filter{Status: "archived"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
