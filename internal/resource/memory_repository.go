package resource

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps the catalog in process memory.
type MemoryRepository struct {
	mu        sync.RWMutex
	resources map[string]*Resource
}

// NewMemoryRepository returns a repository seeded with the given resources.
// Resources without an ID get a fresh UUID.
func NewMemoryRepository(seed ...*Resource) *MemoryRepository {
	m := &MemoryRepository{resources: make(map[string]*Resource)}
	for _, r := range seed {
		m.Put(r)
	}
	return m
}

// Put inserts or replaces a resource.
func (m *MemoryRepository) Put(r *Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = StatusAvailable
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	cp := *r
	m.resources[r.ID] = &cp
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.resources[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryRepository) List(_ context.Context, filter Filter) ([]*Resource, int, error) {
	m.mu.RLock()
	var all []*Resource
	for _, r := range m.resources {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		cp := *r
		all = append(all, &cp)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].DisplayOrder != all[j].DisplayOrder {
			return all[i].DisplayOrder < all[j].DisplayOrder
		}
		return all[i].Name < all[j].Name
	})

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	total := len(all)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}
