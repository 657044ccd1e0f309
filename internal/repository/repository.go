// Package repository defines the storage contracts the service layer depends on.
//
// The service layer only sees these interfaces. Concrete implementations
// live in sub-packages (sqlite, postgres) and are chosen in internal/server.
// Tests plug in in-memory fakes.
package repository

import (
	"context"

	"github.com/rs/xid"

	"github.com/sakif/blog-api/internal/model"
)

// DefaultListLimit and MaxListLimit bound every List call. A limit outside
// (0, MaxListLimit] is clamped by the implementation.
const (
	DefaultListLimit = 20
	MaxListLimit     = 20
)

// ListOptions controls List. There is no offset or cursor: List always
// returns the current top-N.
type ListOptions struct {
	Limit int
}

// UserRepository is the Credential Store.
//
// Create returns an *apperror.AppError wrapping ErrConflict when the
// username is taken. Lookups return ErrNotFound for unknown users.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id xid.ID) (*model.User, error)
}

// PostRepository is the Post Store.
//
// GetByID and List populate Post.Author from the users table. Update writes
// title, summary, content, cover and updated_at; it never changes the author.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id xid.ID) (*model.Post, error)
	List(ctx context.Context, opts ListOptions) ([]model.Post, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id xid.ID) error
}

// ClampLimit applies DefaultListLimit and MaxListLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
