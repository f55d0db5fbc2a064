package reservation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Joiner fills the display fields of a reservation read from a store that
// cannot join them itself.
type Joiner func(ctx context.Context, r *Reservation)

// MemoryRepository is an in-process Repository. Like the Postgres schema, it
// refuses to hold two overlapping active reservations on one resource.
type MemoryRepository struct {
	mu           sync.RWMutex
	reservations map[string]*Reservation

	locks keyedMutex
	join  Joiner
	now   func() time.Time
}

// NewMemoryRepository returns an empty store. join may be nil.
func NewMemoryRepository(join Joiner) *MemoryRepository {
	return &MemoryRepository{
		reservations: make(map[string]*Reservation),
		join:         join,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryRepository) Exclusive(ctx context.Context, resourceID string, fn func(ctx context.Context, tx Repository) error) error {
	unlock := m.locks.Lock(resourceID)
	defer unlock()

	tx := &memoryTx{MemoryRepository: m, resourceID: resourceID}
	return fn(ctx, tx)
}

func (m *MemoryRepository) Insert(ctx context.Context, r *Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !r.StartTime.Before(r.EndTime) {
		return ErrInvalidTimeRange
	}
	if r.Status.Active() {
		for _, existing := range m.reservations {
			if existing.ResourceID == r.ResourceID && existing.Status.Active() && existing.Overlaps(r.StartTime, r.EndTime) {
				return ErrOverlap
			}
		}
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := m.now()
	r.CreatedAt = now
	r.UpdatedAt = now

	cp := *r
	m.reservations[r.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	m.mu.RLock()
	r, ok := m.reservations[id]
	var cp Reservation
	if ok {
		cp = *r
	}
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return m.joined(ctx, &cp), nil
}

func (m *MemoryRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	filter.normalize()

	m.mu.RLock()
	var matched []*Reservation
	for _, r := range m.reservations {
		if !matches(r, filter) {
			continue
		}
		cp := *r
		matched = append(matched, &cp)
	}
	m.mu.RUnlock()

	sortReservations(matched, filter.SortBy, filter.SortOrder == "ASC")

	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}

	page := matched[start:end]
	for _, r := range page {
		m.joined(ctx, r)
	}
	return page, total, nil
}

// Snapshot copies every match in one pass under the read lock, so
// concurrent writes land entirely before or after it.
func (m *MemoryRepository) Snapshot(ctx context.Context, filter Filter) ([]*Reservation, error) {
	m.mu.RLock()
	var out []*Reservation
	for _, r := range m.reservations {
		if !matches(r, filter) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	m.mu.RUnlock()

	sortReservations(out, "start_time", true)
	for _, r := range out {
		m.joined(ctx, r)
	}
	return out, nil
}

func (m *MemoryRepository) FindOverlapping(ctx context.Context, resourceID string, start, end time.Time, statuses []Status) ([]*Reservation, error) {
	m.mu.RLock()
	var out []*Reservation
	for _, r := range m.reservations {
		if r.ResourceID != resourceID || !containsStatus(statuses, r.Status) || !r.Overlaps(start, end) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	m.mu.RUnlock()

	sortReservations(out, "start_time", true)
	for _, r := range out {
		m.joined(ctx, r)
	}
	return out, nil
}

func (m *MemoryRepository) UpdateStatus(ctx context.Context, id string, from []Status, to Status) (*Reservation, error) {
	m.mu.Lock()
	r, ok := m.reservations[id]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	if !containsStatus(from, r.Status) {
		m.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	r.Status = to
	r.UpdatedAt = m.now()
	cp := *r
	m.mu.Unlock()

	return m.joined(ctx, &cp), nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id string, from []Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[id]
	if !ok {
		return ErrNotFound
	}
	if !containsStatus(from, r.Status) {
		return ErrInvalidTransition
	}
	delete(m.reservations, id)
	return nil
}

func (m *MemoryRepository) joined(ctx context.Context, r *Reservation) *Reservation {
	if m.join != nil {
		m.join(ctx, r)
	}
	return r
}

// memoryTx is the view of a MemoryRepository handed to Exclusive callbacks.
// Writes are restricted to the locked resource.
type memoryTx struct {
	*MemoryRepository
	resourceID string
}

func (tx *memoryTx) Insert(ctx context.Context, r *Reservation) error {
	if r.ResourceID != tx.resourceID {
		return fmt.Errorf("insert for resource %s outside exclusive section of %s", r.ResourceID, tx.resourceID)
	}
	return tx.MemoryRepository.Insert(ctx, r)
}

func (tx *memoryTx) Exclusive(ctx context.Context, resourceID string, fn func(ctx context.Context, tx Repository) error) error {
	if resourceID != tx.resourceID {
		return fmt.Errorf("nested exclusive section for resource %s inside %s", resourceID, tx.resourceID)
	}
	return fn(ctx, tx)
}

// keyedMutex hands out one mutex per key. Keys are resource ids, a bounded
// set, so entries are never evicted.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func matches(r *Reservation, f Filter) bool {
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	if f.ResourceID != "" && r.ResourceID != f.ResourceID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.From != nil && r.EndTime.Before(*f.From) {
		return false
	}
	if f.To != nil && r.StartTime.After(*f.To) {
		return false
	}
	return true
}

func containsStatus(statuses []Status, s Status) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

func sortReservations(items []*Reservation, by string, asc bool) {
	less := func(a, b *Reservation) bool {
		switch by {
		case "end_time":
			return a.EndTime.Before(b.EndTime)
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		case "status":
			return a.Status < b.Status
		default:
			return a.StartTime.Before(b.StartTime)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if less(a, b) {
			return asc
		}
		if less(b, a) {
			return !asc
		}
		return a.ID < b.ID
	})
}
