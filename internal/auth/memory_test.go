package auth

import (
	"context"
	"sync"
	"time"

	"github.com/procurehub/procurehub/internal/shared"
)

// memoryRepo enforces the same uniqueness rules as the users table.
type memoryRepo struct {
	mu        sync.Mutex
	byName    map[string]*User
	byEmail   map[string]*User
	nextID    int64
	insertErr error
	findErr   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byName: make(map[string]*User), byEmail: make(map[string]*User)}
}

func (r *memoryRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	user, ok := r.byName[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *memoryRepo) Insert(ctx context.Context, in NewUser) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	if _, ok := r.byName[in.Username]; ok {
		return nil, ErrDuplicateUsername
	}
	if _, ok := r.byEmail[in.Email]; ok {
		return nil, ErrDuplicateEmail
	}
	r.nextID++
	user := &User{
		ID:           r.nextID,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	r.byName[user.Username] = user
	r.byEmail[user.Email] = user
	clone := *user
	return &clone, nil
}

func (r *memoryRepo) setActive(username string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.byName[username]; ok {
		user.IsActive = active
		now := time.Now().UTC()
		user.UpdatedAt = &now
	}
}

func (r *memoryRepo) remove(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.byName[username]; ok {
		delete(r.byEmail, user.Email)
		delete(r.byName, username)
	}
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName)
}

var _ Repository = (*memoryRepo)(nil)
