package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
	"github.com/zuetani/earth-tribe/internal/session"
	"github.com/zuetani/earth-tribe/pkg/helpers"
	"github.com/zuetani/earth-tribe/pkg/mailer"
)

type sessionFixture struct {
	svc        *SessionService
	identities *memIdentities
	users      *memUsers
	sessions   *memSessions
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		identities: newMemIdentities(),
		users:      newMemUsers(),
		sessions:   newMemSessions(),
	}
	jwt := helpers.NewJWTManager("test-access", "test-refresh", time.Hour, 24*time.Hour)
	f.svc = NewSessionService(f.identities, f.users, f.sessions, jwt, nil)
	f.svc.Now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	return f
}

func strPtr(s string) *string { return &s }

func TestSessionService_DemoScenario(t *testing.T) {
	t.Parallel()
	f := newSessionFixture()
	ctx := context.Background()

	sess := session.New()
	u, pair, err := f.svc.Register(ctx, sess, "demo@zuetani.com", "demo123456", "Demo User")
	require.NoError(t, err)
	assert.Equal(t, []string{}, u.Interests)
	assert.Equal(t, "", u.Bio)
	assert.False(t, u.JoinedAt.IsZero())
	assert.Equal(t, "Demo User", u.Name)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, session.StateAuthenticated, sess.State())

	loginSess := session.New()
	got, _, err := f.svc.Login(ctx, loginSess, "demo@zuetani.com", "demo123456")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, f.svc.Logout(ctx, loginSess))
	assert.Nil(t, f.svc.CurrentUser(loginSess))

	_, err = f.svc.UpdateProfile(ctx, loginSess, ProfileUpdate{Name: strPtr("X")})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSessionService_RegisterThenLoginReturnsSameID(t *testing.T) {
	t.Parallel()
	f := newSessionFixture()
	ctx := context.Background()

	accounts := []struct{ email, password, name string }{
		{"ana@example.com", "secret1", "Ana"},
		{"Bo@Example.com ", "hunter22", "Bo"},
		{"chen@example.org", "p@ssw0rd!", "Chen"},
	}
	for _, a := range accounts {
		u, _, err := f.svc.Register(ctx, session.New(), a.email, a.password, a.name)
		require.NoError(t, err)

		got, _, err := f.svc.Login(ctx, session.New(), a.email, a.password)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID, a.email)
	}
}

func TestSessionService_LoginFailures(t *testing.T) {
	t.Parallel()
	f := newSessionFixture()
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, session.New(), "maya@example.com", "correct-horse", "Maya")
	require.NoError(t, err)

	// Identity with no profile document.
	require.NoError(t, f.identities.Create(ctx, &entity.Identity{Email: "ghost@example.com", PasswordHash: mustHash(t, "pw1234")}))

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"unknown email", "nobody@example.com", "whatever", ErrInvalidCredentials},
		{"wrong password", "maya@example.com", "wrong", ErrInvalidCredentials},
		{"missing profile", "ghost@example.com", "pw1234", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := session.New()
			u, _, err := f.svc.Login(ctx, sess, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, u)
			assert.Equal(t, session.StateResolving, sess.State())
		})
	}
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := helpers.HashPassword(pw)
	require.NoError(t, err)
	return h
}

func TestSessionService_RegisterDuplicateEmail(t *testing.T) {
	t.Parallel()
	f := newSessionFixture()
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, session.New(), "dup@example.com", "secret1", "First")
	require.NoError(t, err)

	_, _, err = f.svc.Register(ctx, session.New(), "DUP@example.com", "secret2", "Second")
	require.ErrorIs(t, err, ErrRegistration)

	var regErr *RegistrationError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "email already in use", regErr.Reason)
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestSessionService_RegisterCompensatesOnProfileFailure(t *testing.T) {
	t.Parallel()
	f := newSessionFixture()
	f.users.CreateFunc = func(context.Context, *entity.User) error { return errors.New("document store down") }
	ctx := context.Background()

	sess := session.New()
	_, _, err := f.svc.Register(ctx, sess, "half@example.com", "secret1", "Half")
	require.ErrorIs(t, err, ErrRegistration)

	assert.Equal(t, []string{"uid-1"}, f.identities.deleted)
	_, err = f.identities.GetByEmail(ctx, "half@example.com")
	assert.Error(t, err, "identity must be removed again")
	assert.Nil(t, sess.Current())
}

func TestSessionService_RegisterPublishesWelcomeEmail(t *testing.T) {
	t.Parallel()
	f := newSessionFixture()
	jobs := &stubJobs{err: errors.New("broker unavailable")}
	f.svc.Jobs = jobs

	_, _, err := f.svc.Register(context.Background(), session.New(), "wren@example.com", "secret1", "Wren")
	require.NoError(t, err, "publish failures must not fail registration")

	require.Len(t, jobs.jobs, 1)
	job, ok := jobs.jobs[0].(mailer.EmailJob)
	require.True(t, ok)
	assert.Equal(t, "wren@example.com", job.To)
	assert.Equal(t, mailer.TemplateWelcome, job.Template)
	assert.Equal(t, "Wren", job.Data["Name"])
}

func TestSessionService_ProfileIndexFailureMarksStale(t *testing.T) {
	t.Parallel()
	f := newSessionFixture()
	content := NewContentService(&memPosts{}, f.users, stubGroups{}, nil)
	content.Index = stubIndex{IndexUserFunc: func(context.Context, *entity.User) error { return errors.New("es: 429") }}
	f.svc.Index = content.Index
	f.svc.IndexFailed = content.MarkIndexStale
	ctx := context.Background()
	require.NoError(t, content.Reindex(ctx))

	_, _, err := f.svc.Register(ctx, session.New(), "maya@example.com", "correct-horse", "Maya")
	require.NoError(t, err)
	assert.False(t, content.IndexSynced())

	got, err := content.SearchUsers(ctx, "maya")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Maya", got[0].Name)
}

func TestSessionService_LogoutIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newSessionFixture()
	ctx := context.Background()

	sess := session.New()
	_, pair, err := f.svc.Register(ctx, sess, "li@example.com", "secret1", "Li")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, sess))
	require.NoError(t, f.svc.Logout(ctx, sess))
	assert.Equal(t, session.StateUnauthenticated, sess.State())

	// The server-side session is gone, so the old token no longer restores.
	restored := f.svc.Restore(ctx, session.New(), pair.AccessToken)
	assert.Nil(t, restored)
}

func TestSessionService_UpdateProfileMergesFields(t *testing.T) {
	t.Parallel()
	f := newSessionFixture()
	ctx := context.Background()

	sess := session.New()
	_, _, err := f.svc.Register(ctx, sess, "kai@example.com", "secret1", "Kai")
	require.NoError(t, err)
	before, err := f.svc.UpdateProfile(ctx, sess, ProfileUpdate{
		Location:  strPtr("Lisbon"),
		Interests: []string{"surf", "photography"},
	})
	require.NoError(t, err)

	after, err := f.svc.UpdateProfile(ctx, sess, ProfileUpdate{Bio: strPtr("x")})
	require.NoError(t, err)

	assert.Equal(t, "x", after.Bio)
	expected := before.Clone()
	expected.Bio = "x"
	assert.Equal(t, expected, after)

	stored, err := f.users.GetByID(ctx, after.ID)
	require.NoError(t, err)
	assert.Equal(t, after, stored)
	assert.Equal(t, after, sess.Current())
}

func TestSessionService_RestoreFromToken(t *testing.T) {
	t.Parallel()
	f := newSessionFixture()
	ctx := context.Background()

	u, pair, err := f.svc.Register(ctx, session.New(), "rui@example.com", "secret1", "Rui")
	require.NoError(t, err)

	t.Run("valid token authenticates", func(t *testing.T) {
		sess := session.New()
		notified := make(chan session.State, 1)
		cancel := sess.Subscribe(func(s session.State, _ *entity.User) { notified <- s })
		defer cancel()

		got := f.svc.Restore(ctx, sess, pair.AccessToken)
		require.NotNil(t, got)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, session.StateAuthenticated, <-notified)
	})

	t.Run("no token resolves unauthenticated", func(t *testing.T) {
		sess := session.New()
		assert.Nil(t, f.svc.Restore(ctx, sess, ""))
		assert.Equal(t, session.StateUnauthenticated, sess.State())
	})

	t.Run("garbage token resolves unauthenticated", func(t *testing.T) {
		sess := session.New()
		assert.Nil(t, f.svc.Restore(ctx, sess, "not-a-jwt"))
		assert.Equal(t, session.StateUnauthenticated, sess.State())
	})
}

func TestSessionService_RefreshRotatesSession(t *testing.T) {
	t.Parallel()
	f := newSessionFixture()
	ctx := context.Background()

	_, pair, err := f.svc.Register(ctx, session.New(), "ivy@example.com", "secret1", "Ivy")
	require.NoError(t, err)

	next, uid, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	assert.Nil(t, f.svc.Restore(ctx, session.New(), pair.AccessToken), "old sid is revoked")
	assert.NotNil(t, f.svc.Restore(ctx, session.New(), next.AccessToken))

	_, _, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSessionService_SessionStoreFailure(t *testing.T) {
	t.Parallel()
	f := newSessionFixture()
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, session.New(), "zed@example.com", "secret1", "Zed")
	require.NoError(t, err)

	f.sessions.SaveFunc = func(context.Context, string, string) error { return errors.New("redis: connection refused") }
	_, _, err = f.svc.Login(ctx, session.New(), "zed@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotContains(t, err.Error(), "redis")
}
