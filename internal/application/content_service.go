package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
	repo "github.com/zuetani/earth-tribe/internal/domain/repository"
	"github.com/zuetani/earth-tribe/internal/observability"
	"github.com/zuetani/earth-tribe/pkg/helpers"
)

// ContentService serves the feed, profiles lookup, groups and search.
type ContentService struct {
	Posts  repo.PostRepository
	Users  repo.UserRepository
	Groups repo.GroupRepository
	Logger *logrus.Logger

	// Index, when set, receives new posts and answers searches once Reindex
	// has mirrored the stores into it. Any failed write sends searches back
	// to the scan until the next successful Reindex.
	Index repo.SearchIndex

	Now   func() time.Time
	NewID func() string

	idxMu     sync.Mutex
	idxSynced bool
	idxGen    uint64
}

// NewPost holds the caller-supplied post fields. ID, CreatedAt, Likes and
// Comments are always assigned by CreatePost.
type NewPost struct {
	UserID   string
	Title    string
	Content  string
	Images   []string
	Location string
	Tags     []string
}

// Feed is the dashboard view: posts plus their authors keyed by user id.
// Authors that no longer exist are simply absent.
type Feed struct {
	Posts   []*entity.Post          `json:"posts"`
	Authors map[string]*entity.User `json:"authors"`
}

func NewContentService(posts repo.PostRepository, users repo.UserRepository, groups repo.GroupRepository, logger *logrus.Logger) *ContentService {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &ContentService{
		Posts:  posts,
		Users:  users,
		Groups: groups,
		Logger: logger,
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
}

func (s *ContentService) CreatePost(ctx context.Context, in NewPost) (*entity.Post, error) {
	images := in.Images
	if images == nil {
		images = []string{}
	}
	p := &entity.Post{
		ID:        s.NewID(),
		UserID:    in.UserID,
		Title:     in.Title,
		Content:   in.Content,
		Images:    append([]string{}, images...),
		Location:  in.Location,
		Tags:      NormalizeTags(in.Tags),
		CreatedAt: s.Now().UTC(),
		Likes:     []string{},
		Comments:  []entity.Comment{},
	}
	if err := s.Posts.Create(ctx, p); err != nil {
		s.Logger.WithError(err).WithField("user_id", in.UserID).Error("create post failed")
		return nil, ErrUnavailable
	}
	observability.PostsCreated.Inc()
	if s.Index != nil {
		if err := s.Index.IndexPost(ctx, p); err != nil {
			s.Logger.WithError(err).WithField("post_id", p.ID).Warn("es index failed")
			s.MarkIndexStale()
		}
	}
	return p, nil
}

// GetPosts returns every post, newest first.
func (s *ContentService) GetPosts(ctx context.Context) ([]*entity.Post, error) {
	posts, err := s.Posts.List(ctx)
	if err != nil {
		s.Logger.WithError(err).Error("list posts failed")
		return nil, ErrUnavailable
	}
	if posts == nil {
		posts = []*entity.Post{}
	}
	return posts, nil
}

func (s *ContentService) GetUsers(ctx context.Context) ([]*entity.User, error) {
	users, err := s.Users.List(ctx)
	if err != nil {
		s.Logger.WithError(err).Error("list users failed")
		return nil, ErrUnavailable
	}
	if users == nil {
		users = []*entity.User{}
	}
	return users, nil
}

// GetUserByID returns nil without error when the user does not exist.
func (s *ContentService) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		s.Logger.WithError(err).WithField("user_id", id).Error("get user failed")
		return nil, ErrUnavailable
	}
	return u, nil
}

func (s *ContentService) GetGroups(ctx context.Context) ([]*entity.Group, error) {
	groups, err := s.Groups.List(ctx)
	if err != nil {
		s.Logger.WithError(err).Error("list groups failed")
		return nil, ErrUnavailable
	}
	if groups == nil {
		groups = []*entity.Group{}
	}
	return groups, nil
}

func (s *ContentService) GetFeed(ctx context.Context) (*Feed, error) {
	posts, err := s.GetPosts(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entity.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	authors := make(map[string]*entity.User)
	for _, p := range posts {
		if u, ok := byID[p.UserID]; ok {
			authors[p.UserID] = u
		}
	}
	return &Feed{Posts: posts, Authors: authors}, nil
}

// SearchPosts matches q case-insensitively against title, content, location and tags.
// A blank query returns no results without reading any data.
func (s *ContentService) SearchPosts(ctx context.Context, q string) ([]*entity.Post, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []*entity.Post{}, nil
	}
	if s.IndexSynced() {
		observability.Searches.WithLabelValues("posts", "elasticsearch").Inc()
		posts, err := s.Index.SearchPosts(ctx, q)
		if err == nil {
			return posts, nil
		}
		s.logIndexMiss(err, "posts")
	}
	observability.Searches.WithLabelValues("posts", "scan").Inc()
	posts, err := s.GetPosts(ctx)
	if err != nil {
		return nil, err
	}
	return filterPosts(posts, q), nil
}

// SearchUsers matches q case-insensitively against name, bio and interests.
func (s *ContentService) SearchUsers(ctx context.Context, q string) ([]*entity.User, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []*entity.User{}, nil
	}
	if s.IndexSynced() {
		observability.Searches.WithLabelValues("users", "elasticsearch").Inc()
		users, err := s.Index.SearchUsers(ctx, q)
		if err == nil {
			return users, nil
		}
		s.logIndexMiss(err, "users")
	}
	observability.Searches.WithLabelValues("users", "scan").Inc()
	users, err := s.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	return filterUsers(users, q), nil
}

func (s *ContentService) logIndexMiss(err error, kind string) {
	entry := s.Logger.WithError(err).WithField("kind", kind)
	if errors.Is(err, repo.ErrIndexTruncated) {
		entry.Info("es result set truncated, falling back to scan")
		return
	}
	entry.Warn("es search failed, falling back to scan")
}

// IndexSynced reports whether searches may be answered by Index.
func (s *ContentService) IndexSynced() bool {
	if s.Index == nil {
		return false
	}
	s.idxMu.Lock()
	defer s.idxMu.Unlock()
	return s.idxSynced
}

// MarkIndexStale sends searches to the scan until the next successful Reindex.
func (s *ContentService) MarkIndexStale() {
	s.idxMu.Lock()
	s.idxSynced = false
	s.idxGen++
	s.idxMu.Unlock()
}

// Reindex copies every stored post and profile into Index. Searches use the
// index afterwards unless a write failed while the copy was running.
func (s *ContentService) Reindex(ctx context.Context) error {
	if s.Index == nil {
		return nil
	}
	s.idxMu.Lock()
	gen := s.idxGen
	s.idxMu.Unlock()

	posts, err := s.GetPosts(ctx)
	if err != nil {
		return err
	}
	users, err := s.GetUsers(ctx)
	if err != nil {
		return err
	}
	if err := s.Index.Bulk(ctx, posts, users); err != nil {
		s.Logger.WithError(err).Warn("es reindex failed")
		s.MarkIndexStale()
		return ErrUnavailable
	}

	s.idxMu.Lock()
	defer s.idxMu.Unlock()
	if s.idxGen != gen {
		return errIndexChanged
	}
	s.idxSynced = true
	s.Logger.WithFields(logrus.Fields{"posts": len(posts), "users": len(users)}).Info("es reindex complete")
	return nil
}

var errIndexChanged = errors.New("search index went stale during reindex")

// KeepIndexSynced runs Reindex now and then on every tick while the index is
// stale. It returns when ctx is done.
func (s *ContentService) KeepIndexSynced(ctx context.Context, every time.Duration) {
	if s.Index == nil {
		return
	}
	_ = s.Reindex(ctx)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !s.IndexSynced() {
				_ = s.Reindex(ctx)
			}
		}
	}
}
