package repository

import (
	"context"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
)

// PostRepository stores posts in the posts collection.
type PostRepository interface {
	// Create inserts p as given; ID and CreatedAt are set by the caller.
	Create(ctx context.Context, p *entity.Post) error
	// List returns all posts ordered by createdAt descending.
	List(ctx context.Context) ([]*entity.Post, error)
}

// GroupRepository reads the groups collection.
type GroupRepository interface {
	List(ctx context.Context) ([]*entity.Group, error)
}
