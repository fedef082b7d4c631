package repository

import (
	"context"
	"errors"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("conflict")
)

// UserRepository stores profile documents in the users collection.
type UserRepository interface {
	// Create inserts the profile under u.ID.
	Create(ctx context.Context, u *entity.User) error
	// GetByID returns ErrNotFound when no profile exists for id.
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// Update replaces the stored profile with u.
	Update(ctx context.Context, u *entity.User) error
	// List returns every profile ordered by joinedAt.
	List(ctx context.Context) ([]*entity.User, error)
}

// IdentityRepository is the email/password account store.
type IdentityRepository interface {
	// Create stores a new account and assigns its ID. ErrConflict when the email is taken.
	Create(ctx context.Context, id *entity.Identity) error
	// GetByEmail returns ErrNotFound for unknown emails.
	GetByEmail(ctx context.Context, email string) (*entity.Identity, error)
	Delete(ctx context.Context, id string) error
}
