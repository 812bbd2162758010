package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pollbox/pollbox/internal/models"
)

// MemoryUserRepository mirrors the Mongo repository's behavior, including the
// unique-email constraint, for unit tests.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (r *MemoryUserRepository) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := r.byEmail[email]; ok {
		return ErrDuplicateEmail
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Email = email
	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[email] = &cp
	return nil
}

// SetRole changes a user's role in place. Promotion happens out of band, so
// only the in-memory repository used by tests and tooling exposes it.
func (r *MemoryUserRepository) SetRole(id, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.Role = role
		u.UpdatedAt = time.Now().UTC()
	}
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}
