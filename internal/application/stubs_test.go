package application

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
	repo "github.com/zuetani/earth-tribe/internal/domain/repository"
)

// In-memory ports. Each has optional func overrides for error injection.

type memIdentities struct {
	mu      sync.Mutex
	byEmail map[string]*entity.Identity
	seq     int

	CreateFunc func(ctx context.Context, id *entity.Identity) error
	deleted    []string
}

func newMemIdentities() *memIdentities {
	return &memIdentities{byEmail: map[string]*entity.Identity{}}
}

func (m *memIdentities) Create(ctx context.Context, id *entity.Identity) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *id
	return &cp, nil
}

func (m *memIdentities) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	for email, ident := range m.byEmail {
		if ident.ID == id {
			delete(m.byEmail, email)
		}
	}
	return nil
}

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*entity.User

	CreateFunc func(ctx context.Context, u *entity.User) error
	ListFunc   func(ctx context.Context) ([]*entity.User, error)
	listCalls  int
}

func newMemUsers(users ...*entity.User) *memUsers {
	m := &memUsers{byID: map[string]*entity.User{}}
	for _, u := range users {
		m.byID[u.ID] = u.Clone()
	}
	return m
}

func (m *memUsers) Create(ctx context.Context, u *entity.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = u.Clone()
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return u.Clone(), nil
}

func (m *memUsers) Update(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return repo.ErrNotFound
	}
	m.byID[u.ID] = u.Clone()
	return nil
}

func (m *memUsers) List(ctx context.Context) ([]*entity.User, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memSessions struct {
	mu   sync.Mutex
	sids map[string]string

	SaveFunc   func(ctx context.Context, userID, sid string) error
	DeleteFunc func(ctx context.Context, userID string) error
}

func newMemSessions() *memSessions { return &memSessions{sids: map[string]string{}} }

func (m *memSessions) Save(ctx context.Context, userID, sid string) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, userID, sid)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sids[userID] = sid
	return nil
}

func (m *memSessions) Active(_ context.Context, userID, sid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sids[userID] == sid && sid != "", nil
}

func (m *memSessions) Delete(ctx context.Context, userID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sids, userID)
	return nil
}

type memPosts struct {
	mu        sync.Mutex
	posts     []*entity.Post
	listCalls int

	CreateFunc func(ctx context.Context, p *entity.Post) error
	ListFunc   func(ctx context.Context) ([]*entity.Post, error)
}

func (m *memPosts) Create(ctx context.Context, p *entity.Post) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.posts = append(m.posts, &cp)
	return nil
}

func (m *memPosts) List(ctx context.Context) ([]*entity.Post, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]*entity.Post{}, m.posts...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

type stubGroups struct {
	ListFunc func(ctx context.Context) ([]*entity.Group, error)
}

func (s stubGroups) List(ctx context.Context) ([]*entity.Group, error) {
	if s.ListFunc != nil {
		return s.ListFunc(ctx)
	}
	return nil, nil
}

type stubIndex struct {
	IndexPostFunc   func(ctx context.Context, p *entity.Post) error
	IndexUserFunc   func(ctx context.Context, u *entity.User) error
	BulkFunc        func(ctx context.Context, posts []*entity.Post, users []*entity.User) error
	SearchPostsFunc func(ctx context.Context, q string) ([]*entity.Post, error)
	SearchUsersFunc func(ctx context.Context, q string) ([]*entity.User, error)
}

func (s stubIndex) IndexPost(ctx context.Context, p *entity.Post) error {
	if s.IndexPostFunc != nil {
		return s.IndexPostFunc(ctx, p)
	}
	return nil
}

func (s stubIndex) IndexUser(ctx context.Context, u *entity.User) error {
	if s.IndexUserFunc != nil {
		return s.IndexUserFunc(ctx, u)
	}
	return nil
}

func (s stubIndex) Bulk(ctx context.Context, posts []*entity.Post, users []*entity.User) error {
	if s.BulkFunc != nil {
		return s.BulkFunc(ctx, posts, users)
	}
	return nil
}

func (s stubIndex) SearchPosts(ctx context.Context, q string) ([]*entity.Post, error) {
	return s.SearchPostsFunc(ctx, q)
}

func (s stubIndex) SearchUsers(ctx context.Context, q string) ([]*entity.User, error) {
	return s.SearchUsersFunc(ctx, q)
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string]string

	PutFunc func(ctx context.Context, path, contentType string, r io.Reader) (string, error)
}

func newMemObjects() *memObjects { return &memObjects{objects: map[string]string{}} }

func (m *memObjects) Put(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, path, contentType, r)
	}
	var b strings.Builder
	if r != nil {
		if _, err := io.Copy(&b, r); err != nil {
			return "", err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = b.String()
	return "https://cdn.test/" + path, nil
}

func (m *memObjects) URL(_ context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return "", repo.ErrNotFound
	}
	return "https://cdn.test/" + path, nil
}

func (m *memObjects) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return repo.ErrNotFound
	}
	delete(m.objects, path)
	return nil
}

type stubJobs struct {
	mu   sync.Mutex
	jobs []any
	err  error
}

func (s *stubJobs) PublishJSON(_ context.Context, body any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, body)
	return s.err
}
