package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
	"github.com/zuetani/earth-tribe/internal/domain/repository"
)

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func (r *PostRepository) Create(ctx context.Context, p *entity.Post) error {
	comments := p.Comments
	if comments == nil {
		comments = []entity.Comment{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO posts (id, user_id, title, content, images, location, tags, created_at, likes, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.UserID, p.Title, p.Content, nonNil(p.Images), p.Location, nonNil(p.Tags), p.CreatedAt, nonNil(p.Likes), comments)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return err
}

// List orders by created_at then id, both descending, so equal timestamps stay stable.
func (r *PostRepository) List(ctx context.Context) ([]*entity.Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, content, images, location, tags, created_at, likes, comments
		FROM posts
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]*entity.Post, 0)
	for rows.Next() {
		p := &entity.Post{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.Images, &p.Location, &p.Tags, &p.CreatedAt, &p.Likes, &p.Comments); err != nil {
			return nil, err
		}
		p.Images, p.Tags, p.Likes = nonNil(p.Images), nonNil(p.Tags), nonNil(p.Likes)
		if p.Comments == nil {
			p.Comments = []entity.Comment{}
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

var _ repository.PostRepository = (*PostRepository)(nil)

type GroupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

func (r *GroupRepository) List(ctx context.Context) ([]*entity.Group, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, image, member_count, posts
		FROM groups
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]*entity.Group, 0)
	for rows.Next() {
		g := &entity.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Image, &g.MemberCount, &g.Posts); err != nil {
			return nil, err
		}
		if g.Posts == nil {
			g.Posts = []entity.GroupPost{}
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Create is used by cmd/seed only; groups cannot be created over the API.
func (r *GroupRepository) Create(ctx context.Context, g *entity.Group) error {
	posts := g.Posts
	if posts == nil {
		posts = []entity.GroupPost{}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO groups (name, description, image, member_count, posts)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, g.Name, g.Description, g.Image, g.MemberCount, posts)
	return row.Scan(&g.ID)
}

var _ repository.GroupRepository = (*GroupRepository)(nil)
