package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/query"
)

// MemoryUserRepository keeps users in process memory, in insertion order.
// It is safe for concurrent use; writes are serialized. Data does not
// outlive the process.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users []domain.User
	index map[string]int
}

// NewMemoryUserRepository constructs an empty in-memory store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{index: make(map[string]int)}
}

func (r *MemoryUserRepository) List(ctx context.Context, spec query.Spec) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := query.Filter(r.users, spec, domain.UserMetadata)
	result := make([]domain.User, 0, len(matched))
	for _, u := range matched {
		result = append(result, cloneUser(u))
	}
	return result, nil
}

func (r *MemoryUserRepository) GetByUPN(ctx context.Context, upn string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[upn]
	if !ok {
		return nil, ErrNotFound
	}
	u := cloneUser(r.users[i])
	return &u, nil
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[user.UPN]; exists {
		return ErrDuplicate
	}
	r.index[user.UPN] = len(r.users)
	r.users = append(r.users, cloneUser(*user))
	return nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, upn string, mutate UserMutator) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[upn]
	if !ok {
		return nil, ErrNotFound
	}
	next, err := applyMutator(r.users[i], mutate)
	if err != nil {
		return nil, err
	}
	r.users[i] = cloneUser(*next)
	return next, nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, upn string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[upn]
	if !ok {
		return ErrNotFound
	}
	r.users = append(r.users[:i], r.users[i+1:]...)
	delete(r.index, upn)
	for j := i; j < len(r.users); j++ {
		r.index[r.users[j].UPN] = j
	}
	return nil
}

// Len returns the number of stored users.
func (r *MemoryUserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func cloneUser(u domain.User) domain.User {
	u.Email = cloneString(u.Email)
	return u
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
