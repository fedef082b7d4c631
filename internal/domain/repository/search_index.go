package repository

import (
	"context"
	"errors"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
)

// ErrIndexTruncated is returned by a search whose match set hit the index's result cap.
var ErrIndexTruncated = errors.New("search index: result set truncated")

// SearchIndex is an external full-text index mirroring posts and profiles.
// Queries are case-insensitive substring matches with the same fields as the scan search.
// Writes are visible to searches once they return.
type SearchIndex interface {
	IndexPost(ctx context.Context, p *entity.Post) error
	IndexUser(ctx context.Context, u *entity.User) error
	// Bulk upserts every given document.
	Bulk(ctx context.Context, posts []*entity.Post, users []*entity.User) error
	SearchPosts(ctx context.Context, q string) ([]*entity.Post, error)
	SearchUsers(ctx context.Context, q string) ([]*entity.User, error)
}
