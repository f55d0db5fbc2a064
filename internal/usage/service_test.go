package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/machine-booking-backend/internal/reservation"
)

func seededStore(t *testing.T, n int, resourceID string) *reservation.MemoryRepository {
	t.Helper()

	names := map[string]string{"m1": "Lathe", "m2": "Mill"}
	repo := reservation.NewMemoryRepository(func(_ context.Context, r *reservation.Reservation) {
		r.ResourceName = names[r.ResourceID]
		r.RequesterName = "req-" + r.RequesterID
	})

	ctx := context.Background()
	for i := 0; i < n; i++ {
		start := day.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Insert(ctx, &reservation.Reservation{
			ResourceID:  resourceID,
			RequesterID: "u1",
			StartTime:   start,
			EndTime:     start.Add(30 * time.Minute),
			Status:      reservation.StatusPending,
		}))
	}
	return repo
}

func TestReportReadsEveryReservation(t *testing.T) {
	repo := seededStore(t, 250, "m1")
	svc := NewService(repo, nil)

	report, err := svc.Report(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, 250, report.Reservations)
	assert.Equal(t, []Summary{{Name: "Lathe", Hours: 125}}, report.PerResource)
	assert.Equal(t, []Summary{{Name: "req-u1", Hours: 125}}, report.PerRequester)
}

// racingStore books an earlier slot right after each read, the way a
// concurrent client would while a report is being built.
type racingStore struct {
	*reservation.MemoryRepository
	t     *testing.T
	calls int
}

func (s *racingStore) Snapshot(ctx context.Context, f reservation.Filter) ([]*reservation.Reservation, error) {
	items, err := s.MemoryRepository.Snapshot(ctx, f)
	s.calls++
	start := day.Add(-time.Duration(s.calls) * time.Hour)
	require.NoError(s.t, s.MemoryRepository.Insert(ctx, &reservation.Reservation{
		ResourceID:  "m1",
		RequesterID: "u1",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Status:      reservation.StatusPending,
	}))
	return items, err
}

func TestReportCountsEachReservationOnceUnderConcurrentBooking(t *testing.T) {
	store := &racingStore{MemoryRepository: seededStore(t, 150, "m1"), t: t}
	svc := NewService(store, nil)

	report, err := svc.Report(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls, "the report reads the store once")
	assert.Equal(t, 150, report.Reservations)
	assert.Equal(t, []Summary{{Name: "Lathe", Hours: 75}}, report.PerResource)

	// The booking made during the report shows up in the next one.
	report, err = svc.Report(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 151, report.Reservations)
	assert.Equal(t, []Summary{{Name: "Lathe", Hours: 76}}, report.PerResource)
}

func TestReportFilters(t *testing.T) {
	repo := seededStore(t, 4, "m1")
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, &reservation.Reservation{
		ResourceID:  "m2",
		RequesterID: "u2",
		StartTime:   day,
		EndTime:     day.Add(2 * time.Hour),
		Status:      reservation.StatusConfirmed,
	}))
	svc := NewService(repo, nil)

	report, err := svc.Report(ctx, Filter{ResourceID: "m2"})
	require.NoError(t, err)
	assert.Equal(t, []Summary{{Name: "Mill", Hours: 2}}, report.PerResource)

	from := day.Add(160 * time.Minute)
	report, err = svc.Report(ctx, Filter{From: &from})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reservations, "only the 03:00 slot ends after 02:40")
}

type failingStore struct{}

func (failingStore) Snapshot(context.Context, reservation.Filter) ([]*reservation.Reservation, error) {
	return nil, errors.New("connection reset")
}

func TestReportPropagatesStoreError(t *testing.T) {
	_, err := NewService(failingStore{}, nil).Report(context.Background(), Filter{})
	assert.EqualError(t, err, "connection reset")
}
