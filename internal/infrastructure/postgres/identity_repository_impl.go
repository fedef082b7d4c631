package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
	"github.com/zuetani/earth-tribe/internal/domain/repository"
)

// IdentityRepository stores email/password accounts. Emails are stored as given;
// callers normalise them.
type IdentityRepository struct {
	pool *pgxpool.Pool
}

func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

func (r *IdentityRepository) Create(ctx context.Context, id *entity.Identity) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO identities (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, id.Email, id.PasswordHash)
	if err := row.Scan(&id.ID, &id.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	id := &entity.Identity{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM identities
		WHERE email = $1
	`, email)
	if err := row.Scan(&id.ID, &id.Email, &id.PasswordHash, &id.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return id, nil
}

func (r *IdentityRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	return err
}

var _ repository.IdentityRepository = (*IdentityRepository)(nil)
