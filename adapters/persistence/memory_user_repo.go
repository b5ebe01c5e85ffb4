package persistence

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/apperror"
)

// memoryUserRepo keeps users in process memory. It backs the server when no
// database DSN is configured and is the repository used by handler tests.
type memoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*user.User
}

func NewMemoryUserRepo() user.Repository {
	return &memoryUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func cloneUser(u *user.User) *user.User {
	c := *u
	c.Tokens = slices.Clone(u.Tokens)
	if c.Tokens == nil {
		c.Tokens = []string{}
	}
	if u.Age != nil {
		age := *u.Age
		c.Age = &age
	}
	c.Avatar = nil
	c.HasAvatar = len(u.Avatar) > 0
	return &c
}

func (r *memoryUserRepo) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range r.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (r *memoryUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.ID]; ok {
		return apperror.NewConflict("user", "id", u.ID.String())
	}
	if r.emailTaken(u.Email, uuid.Nil) {
		return apperror.NewConflict("user", "email", u.Email)
	}

	stored := cloneUser(u)
	stored.Avatar = bytes.Clone(u.Avatar)
	stored.Version = 1
	r.users[u.ID] = stored
	u.Version = 1
	return nil
}

func (r *memoryUserRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NewNotFound("user", id.String())
	}
	return cloneUser(u), nil
}

func (r *memoryUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, apperror.NewNotFound("user", email)
}

func (r *memoryUserRepo) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[u.ID]
	if !ok {
		return apperror.NewNotFound("user", u.ID.String())
	}
	if stored.Version != u.Version {
		return apperror.NewAppError(apperror.ErrConflict, "user conflict", "user was modified by another request, retry the update", nil)
	}
	if r.emailTaken(u.Email, u.ID) {
		return apperror.NewConflict("user", "email", u.Email)
	}

	stored.Name = u.Name
	stored.Email = u.Email
	stored.PasswordHash = u.PasswordHash
	stored.Age = cloneUser(u).Age
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()

	u.Version = stored.Version
	u.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *memoryUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return apperror.NewNotFound("user", id.String())
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepo) mutate(id uuid.UUID, fn func(u *user.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return apperror.NewNotFound("user", id.String())
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryUserRepo) AppendToken(_ context.Context, id uuid.UUID, token string) error {
	return r.mutate(id, func(u *user.User) { u.Tokens = append(u.Tokens, token) })
}

func (r *memoryUserRepo) RemoveToken(_ context.Context, id uuid.UUID, token string) error {
	return r.mutate(id, func(u *user.User) { u.RemoveToken(token) })
}

func (r *memoryUserRepo) ClearTokens(_ context.Context, id uuid.UUID) error {
	return r.mutate(id, func(u *user.User) { u.Tokens = []string{} })
}

func (r *memoryUserRepo) SetAvatar(_ context.Context, id uuid.UUID, avatar []byte) error {
	return r.mutate(id, func(u *user.User) { u.Avatar = bytes.Clone(avatar) })
}

func (r *memoryUserRepo) GetAvatar(_ context.Context, id uuid.UUID) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NewNotFound("user", id.String())
	}
	if len(u.Avatar) == 0 {
		return nil, apperror.NewNotFound("avatar", id.String())
	}
	return bytes.Clone(u.Avatar), nil
}
