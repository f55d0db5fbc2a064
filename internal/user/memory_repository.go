package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[u.Email]; ok {
		return ErrEmailAlreadyUsed
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()

	cp := *u
	m.byID[u.ID] = &cp
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *MemoryRepository) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	return m.mutate(id, func(u *User) { u.LastLoginAt = &t })
}

func (m *MemoryRepository) SetOperator(ctx context.Context, id string, isOperator bool) error {
	return m.mutate(id, func(u *User) { u.IsOperator = isOperator })
}

func (m *MemoryRepository) mutate(id string, fn func(u *User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	return nil
}
