// Package seed fills a fresh database with the demo account, a few curated
// travellers and generated ones. Running it twice does not duplicate accounts.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sirupsen/logrus"

	app "github.com/zuetani/earth-tribe/internal/application"
	"github.com/zuetani/earth-tribe/internal/domain/entity"
	repo "github.com/zuetani/earth-tribe/internal/domain/repository"
	"github.com/zuetani/earth-tribe/pkg/helpers"
)

const (
	DemoEmail    = "demo@zuetani.com"
	DemoPassword = "demo123456"
)

// GroupWriter inserts groups; only seeding creates them.
type GroupWriter interface {
	Create(ctx context.Context, g *entity.Group) error
}

// PostCreator is satisfied by *application.ContentService.
type PostCreator interface {
	CreatePost(ctx context.Context, in app.NewPost) (*entity.Post, error)
}

type Seeder struct {
	Identities  repo.IdentityRepository
	Users       repo.UserRepository
	Groups      repo.GroupRepository
	GroupWriter GroupWriter
	Content     PostCreator
	Index       repo.SearchIndex // optional; receives new profiles
	Logger      *logrus.Logger
	Faker       *gofakeit.Faker
	Now         func() time.Time
}

// Account is one seeded traveller and the posts written as them on creation.
type Account struct {
	Email    string
	Password string
	Profile  entity.User
	Posts    []app.NewPost
}

type Summary struct {
	AccountsCreated int
	AccountsSkipped int
	Posts           int
	Groups          int
}

// Run seeds the curated accounts, then `travellers` generated ones, then the
// groups when none exist yet.
func (s *Seeder) Run(ctx context.Context, travellers int) (Summary, error) {
	var sum Summary
	accounts := append(Curated(), s.fakeAccounts(travellers)...)

	ids := map[string]string{}
	for _, a := range accounts {
		u, created, err := s.EnsureAccount(ctx, a)
		if err != nil {
			return sum, fmt.Errorf("seed %s: %w", a.Email, err)
		}
		ids[a.Email] = u.ID
		if !created {
			sum.AccountsSkipped++
			continue
		}
		sum.AccountsCreated++
		for _, p := range a.Posts {
			p.UserID = u.ID
			if _, err := s.Content.CreatePost(ctx, p); err != nil {
				return sum, fmt.Errorf("seed post for %s: %w", a.Email, err)
			}
			sum.Posts++
		}
	}

	n, err := s.ensureGroups(ctx, ids)
	sum.Groups = n
	return sum, err
}

// EnsureAccount creates the identity and profile unless the email already exists.
func (s *Seeder) EnsureAccount(ctx context.Context, a Account) (*entity.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(a.Email))
	if ident, err := s.Identities.GetByEmail(ctx, email); err == nil {
		u, err := s.Users.GetByID(ctx, ident.ID)
		if err != nil {
			return nil, false, err
		}
		return u, false, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, err
	}

	hash, err := helpers.HashPassword(a.Password)
	if err != nil {
		return nil, false, err
	}
	ident := &entity.Identity{Email: email, PasswordHash: hash}
	if err := s.Identities.Create(ctx, ident); err != nil {
		return nil, false, err
	}

	u := a.Profile.Clone()
	u.ID = ident.ID
	u.Email = email
	if u.Interests == nil {
		u.Interests = []string{}
	}
	if u.JoinedAt.IsZero() {
		u.JoinedAt = s.now().UTC()
	}
	if err := s.Users.Create(ctx, u); err != nil {
		_ = s.Identities.Delete(ctx, ident.ID)
		return nil, false, err
	}
	if s.Index != nil {
		if err := s.Index.IndexUser(ctx, u); err != nil {
			s.logger().WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
	}
	s.logger().WithField("user_id", u.ID).WithField("email", email).Info("seeded account")
	return u, true, nil
}

func (s *Seeder) ensureGroups(ctx context.Context, ids map[string]string) (int, error) {
	if s.Groups == nil || s.GroupWriter == nil {
		return 0, nil
	}
	existing, err := s.Groups.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	groups := CuratedGroups(ids, s.now())
	for _, g := range groups {
		if err := s.GroupWriter.Create(ctx, g); err != nil {
			return 0, fmt.Errorf("seed group %q: %w", g.Name, err)
		}
	}
	return len(groups), nil
}

var interestPool = []string{
	"Yoga", "Meditation", "Hiking", "Photography", "Culture", "Conservation",
	"Surfing", "Permaculture", "Sacred Sites", "Wellness", "Food", "Languages",
}

var tagPool = []string{
	"sunrise", "mountains", "ocean", "temple", "festival", "slow travel",
	"community", "forest", "desert", "river", "market", "volunteering",
}

func (s *Seeder) fakeAccounts(n int) []Account {
	if n <= 0 {
		return nil
	}
	f := s.Faker
	if f == nil {
		f = gofakeit.New(42)
	}
	out := make([]Account, 0, n)
	for i := 0; i < n; i++ {
		first, last := f.FirstName(), f.LastName()
		a := Account{
			Email:    fmt.Sprintf("%s.%s%d@travellers.zuetani.com", strings.ToLower(first), strings.ToLower(last), i),
			Password: f.Password(true, true, true, false, false, 12),
			Profile: entity.User{
				Name:      first + " " + last,
				Avatar:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.UUID()),
				Bio:       f.Sentence(10),
				Location:  f.City() + ", " + f.Country(),
				Interests: pick(f, interestPool, 3),
			},
		}
		posts := f.Number(1, 3)
		for j := 0; j < posts; j++ {
			a.Posts = append(a.Posts, app.NewPost{
				Title:    f.Sentence(5),
				Content:  f.Paragraph(1, 3, 8, "\n"),
				Images:   []string{fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.UUID())},
				Location: f.City(),
				Tags:     pick(f, tagPool, 3),
			})
		}
		out = append(out, a)
	}
	return out
}

func pick(f *gofakeit.Faker, from []string, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.RandomString(from))
	}
	return out
}

func (s *Seeder) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Seeder) logger() *logrus.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return helpers.NewNopLogger()
}
