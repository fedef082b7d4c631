package seed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/zuetani/earth-tribe/internal/application"
	"github.com/zuetani/earth-tribe/internal/domain/entity"
	repo "github.com/zuetani/earth-tribe/internal/domain/repository"
	"github.com/zuetani/earth-tribe/pkg/helpers"
)

type memIdentities struct {
	byEmail map[string]*entity.Identity
	seq     int
}

func (m *memIdentities) Create(_ context.Context, id *entity.Identity) error {
	if _, ok := m.byEmail[id.Email]; ok {
		return repo.ErrConflict
	}
	m.seq++
	id.ID = fmt.Sprintf("uid-%d", m.seq)
	cp := *id
	m.byEmail[id.Email] = &cp
	return nil
}

func (m *memIdentities) GetByEmail(_ context.Context, email string) (*entity.Identity, error) {
	if id, ok := m.byEmail[email]; ok {
		return id, nil
	}
	return nil, repo.ErrNotFound
}

func (m *memIdentities) Delete(_ context.Context, id string) error {
	for email, ident := range m.byEmail {
		if ident.ID == id {
			delete(m.byEmail, email)
		}
	}
	return nil
}

type memUsers struct {
	byID       map[string]*entity.User
	CreateFunc func(u *entity.User) error
}

func (m *memUsers) Create(_ context.Context, u *entity.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(u)
	}
	m.byID[u.ID] = u.Clone()
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	if u, ok := m.byID[id]; ok {
		return u.Clone(), nil
	}
	return nil, repo.ErrNotFound
}

func (m *memUsers) Update(_ context.Context, u *entity.User) error {
	m.byID[u.ID] = u.Clone()
	return nil
}

func (m *memUsers) List(context.Context) ([]*entity.User, error) {
	out := make([]*entity.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, nil
}

type memGroups struct{ groups []*entity.Group }

func (m *memGroups) List(context.Context) ([]*entity.Group, error) { return m.groups, nil }

func (m *memGroups) Create(_ context.Context, g *entity.Group) error {
	g.ID = fmt.Sprintf("g-%d", len(m.groups)+1)
	m.groups = append(m.groups, g)
	return nil
}

type recordingContent struct{ posts []app.NewPost }

func (r *recordingContent) CreatePost(_ context.Context, in app.NewPost) (*entity.Post, error) {
	r.posts = append(r.posts, in)
	return &entity.Post{ID: fmt.Sprintf("p-%d", len(r.posts)), UserID: in.UserID}, nil
}

func newSeeder() (*Seeder, *memIdentities, *memUsers, *memGroups, *recordingContent) {
	ids := &memIdentities{byEmail: map[string]*entity.Identity{}}
	users := &memUsers{byID: map[string]*entity.User{}}
	groups := &memGroups{}
	content := &recordingContent{}
	s := &Seeder{
		Identities:  ids,
		Users:       users,
		Groups:      groups,
		GroupWriter: groups,
		Content:     content,
		Logger:      helpers.NewNopLogger(),
		Faker:       gofakeit.New(7),
		Now:         func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	return s, ids, users, groups, content
}

func TestRun_SeedsDemoAccountThatCanSignIn(t *testing.T) {
	t.Parallel()
	s, ids, users, groups, content := newSeeder()

	sum, err := s.Run(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 7, sum.AccountsCreated)
	assert.Equal(t, 2, sum.Groups)
	assert.Equal(t, len(content.posts), sum.Posts)
	assert.GreaterOrEqual(t, sum.Posts, 2+4)

	demo, err := ids.GetByEmail(context.Background(), DemoEmail)
	require.NoError(t, err)
	assert.True(t, helpers.CompareHashAndPassword(demo.PasswordHash, DemoPassword))

	u, err := users.GetByID(context.Background(), demo.ID)
	require.NoError(t, err)
	assert.Equal(t, DemoEmail, u.Email)
	assert.NotNil(t, u.Interests)
	assert.Equal(t, s.Now(), u.JoinedAt)

	for _, p := range content.posts {
		assert.NotEmpty(t, p.UserID)
	}
	require.Len(t, groups.groups, 2)
	maya, _ := ids.GetByEmail(context.Background(), mayaEmail)
	assert.Equal(t, maya.ID, groups.groups[0].Posts[0].UserID)
}

func TestRun_IsIdempotent(t *testing.T) {
	t.Parallel()
	s, _, _, groups, content := newSeeder()

	_, err := s.Run(context.Background(), 2)
	require.NoError(t, err)
	postsAfterFirst := len(content.posts)

	s.Faker = gofakeit.New(7)
	sum, err := s.Run(context.Background(), 2)
	require.NoError(t, err)
	assert.Zero(t, sum.AccountsCreated)
	assert.Equal(t, 5, sum.AccountsSkipped)
	assert.Zero(t, sum.Groups)
	assert.Len(t, groups.groups, 2)
	assert.Len(t, content.posts, postsAfterFirst)
}

func TestEnsureAccount_ProfileFailureRemovesIdentity(t *testing.T) {
	t.Parallel()
	s, ids, users, _, _ := newSeeder()
	users.CreateFunc = func(*entity.User) error { return errors.New("disk full") }

	_, created, err := s.EnsureAccount(context.Background(), Curated()[0])
	require.Error(t, err)
	assert.False(t, created)
	_, err = ids.GetByEmail(context.Background(), DemoEmail)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestCuratedGroups_WithoutAuthors(t *testing.T) {
	t.Parallel()
	groups := CuratedGroups(nil, time.Now())
	require.Len(t, groups, 2)
	for _, g := range groups {
		assert.NotNil(t, g.Posts)
		assert.Empty(t, g.Posts)
	}
}
