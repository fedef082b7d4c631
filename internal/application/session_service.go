package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
	repo "github.com/zuetani/earth-tribe/internal/domain/repository"
	"github.com/zuetani/earth-tribe/internal/observability"
	"github.com/zuetani/earth-tribe/internal/session"
	"github.com/zuetani/earth-tribe/pkg/helpers"
	"github.com/zuetani/earth-tribe/pkg/mailer"
)

// JobPublisher enqueues background jobs (RabbitMQ in production).
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// SessionService owns login, registration, logout and profile edits.
// Every operation works on an explicit *session.Session supplied by the caller.
type SessionService struct {
	Identities repo.IdentityRepository
	Users      repo.UserRepository
	Sessions   repo.SessionStore
	JWT        *helpers.JWTManager
	Logger     *logrus.Logger

	// Optional collaborators. IndexFailed is called after a profile could not
	// be written to Index.
	Index       repo.SearchIndex
	IndexFailed func()
	Jobs        JobPublisher

	Now func() time.Time
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// ProfileUpdate is a partial profile. Nil fields keep their stored value.
type ProfileUpdate struct {
	Name      *string
	Avatar    *string
	Bio       *string
	Location  *string
	Interests []string
}

func NewSessionService(identities repo.IdentityRepository, users repo.UserRepository, sessions repo.SessionStore, jwt *helpers.JWTManager, logger *logrus.Logger) *SessionService {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &SessionService{
		Identities: identities,
		Users:      users,
		Sessions:   sessions,
		JWT:        jwt,
		Logger:     logger,
		Now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate checks the email/password pair and loads the matching profile.
func (s *SessionService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	ident, err := s.Identities.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			helpers.CompareDummy(password)
			return nil, ErrInvalidCredentials
		}
		s.Logger.WithError(err).Error("identity lookup failed")
		return nil, ErrUnavailable
	}
	if !helpers.CompareHashAndPassword(ident.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	u, err := s.Users.GetByID(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Logger.WithField("user_id", ident.ID).Warn("authenticated identity has no profile document")
			return nil, ErrNotFound
		}
		s.Logger.WithError(err).WithField("user_id", ident.ID).Error("profile lookup failed")
		return nil, ErrUnavailable
	}
	return u, nil
}

// IssueTokens generates access/refresh tokens and records the session id.
func (s *SessionService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, sid)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		return TokenPair{}, ErrUnavailable
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, sid)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate refresh token failed")
		return TokenPair{}, ErrUnavailable
	}
	if err := s.Sessions.Save(ctx, u.ID, sid); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("session save failed")
		return TokenPair{}, ErrUnavailable
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *SessionService) Login(ctx context.Context, sess *session.Session, email, password string) (*entity.User, TokenPair, error) {
	u, pair, err := s.login(ctx, email, password)
	observability.AuthAttempts.WithLabelValues("login", observability.Result(err)).Inc()
	if err != nil {
		return nil, TokenPair{}, err
	}
	sess.Resolve(u)
	return u, pair, nil
}

func (s *SessionService) login(ctx context.Context, email, password string) (*entity.User, TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Register creates the identity account and then its profile document.
// If the profile cannot be written the identity is deleted again.
func (s *SessionService) Register(ctx context.Context, sess *session.Session, email, password, name string) (*entity.User, TokenPair, error) {
	u, pair, err := s.register(ctx, email, password, name)
	observability.AuthAttempts.WithLabelValues("register", observability.Result(err)).Inc()
	if err != nil {
		return nil, TokenPair{}, err
	}
	sess.Resolve(u)
	return u, pair, nil
}

func (s *SessionService) register(ctx context.Context, email, password, name string) (*entity.User, TokenPair, error) {
	email = normalizeEmail(email)
	hash, err := helpers.HashPassword(password)
	if err != nil {
		s.Logger.WithError(err).Error("hash password failed")
		return nil, TokenPair{}, &RegistrationError{Reason: "could not create account"}
	}

	ident := &entity.Identity{Email: email, PasswordHash: hash}
	if err := s.Identities.Create(ctx, ident); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, TokenPair{}, &RegistrationError{Reason: ErrEmailInUse.Error(), Err: ErrEmailInUse}
		}
		s.Logger.WithError(err).WithField("email", email).Error("identity creation failed")
		return nil, TokenPair{}, &RegistrationError{Reason: "could not create account"}
	}

	u := &entity.User{
		ID:        ident.ID,
		Email:     email,
		Name:      name,
		Bio:       "",
		Interests: []string{},
		JoinedAt:  s.Now().UTC(),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		log := s.Logger.WithField("user_id", ident.ID)
		log.WithError(err).Error("profile creation failed after identity creation")
		if dErr := s.Identities.Delete(ctx, ident.ID); dErr != nil {
			log.WithError(dErr).Error("identity left without profile document")
		}
		return nil, TokenPair{}, &RegistrationError{Reason: "could not create profile"}
	}

	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, &RegistrationError{Reason: "account created but sign-in failed"}
	}

	s.indexUser(ctx, u)
	s.enqueueWelcome(ctx, u)
	return u, pair, nil
}

// Logout drops the server-side session and signs sess out. Safe to call when signed out.
func (s *SessionService) Logout(ctx context.Context, sess *session.Session) error {
	u := sess.Current()
	sess.Clear()
	if u == nil {
		return nil
	}
	if err := s.Sessions.Delete(ctx, u.ID); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("session delete failed")
		return ErrUnavailable
	}
	return nil
}

func (s *SessionService) CurrentUser(sess *session.Session) *entity.User {
	return sess.Current()
}

func (s *SessionService) UpdateProfile(ctx context.Context, sess *session.Session, in ProfileUpdate) (*entity.User, error) {
	cur := sess.Current()
	if cur == nil {
		return nil, ErrNotAuthenticated
	}
	u := mergeProfile(cur, in)
	if err := s.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("profile update failed")
		return nil, ErrUnavailable
	}
	sess.Resolve(u)
	s.indexUser(ctx, u)
	return u, nil
}

func mergeProfile(cur *entity.User, in ProfileUpdate) *entity.User {
	u := cur.Clone()
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Avatar != nil {
		u.Avatar = *in.Avatar
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if in.Location != nil {
		u.Location = *in.Location
	}
	if in.Interests != nil {
		u.Interests = append([]string{}, in.Interests...)
	}
	return u
}

// Restore resolves sess from a previously issued access token. A missing token
// resolves to signed-out without touching any backend.
func (s *SessionService) Restore(ctx context.Context, sess *session.Session, accessToken string) *entity.User {
	u := s.restore(ctx, accessToken)
	sess.Resolve(u)
	observability.SessionRestores.WithLabelValues(sess.State().String()).Inc()
	return u
}

func (s *SessionService) restore(ctx context.Context, accessToken string) *entity.User {
	if accessToken == "" {
		return nil
	}
	claims, err := s.JWT.ParseAccessToken(accessToken)
	if err != nil {
		return nil
	}
	ok, err := s.Sessions.Active(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		if ctx.Err() == nil {
			s.Logger.WithError(err).WithField("user_id", claims.UserID).Warn("session lookup failed")
		}
		return nil
	}
	if !ok {
		return nil
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) && ctx.Err() == nil {
			s.Logger.WithError(err).WithField("user_id", claims.UserID).Warn("profile lookup failed")
		}
		return nil
	}
	return u
}

// Refresh rotates the session id and issues a new token pair.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, "", ErrNotAuthenticated
	}
	ok, err := s.Sessions.Active(ctx, claims.UserID, claims.SessionID)
	if err != nil || !ok {
		return TokenPair{}, "", ErrNotAuthenticated
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, "", ErrNotAuthenticated
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return TokenPair{}, "", err
	}
	return pair, u.ID, nil
}

func (s *SessionService) indexUser(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexUser(ctx, u); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		if s.IndexFailed != nil {
			s.IndexFailed()
		}
	}
}

func (s *SessionService) enqueueWelcome(ctx context.Context, u *entity.User) {
	if s.Jobs == nil {
		return
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplateWelcome,
		Data:     map[string]any{"Name": u.Name},
	}
	if err := s.Jobs.PublishJSON(ctx, job); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("failed to publish welcome email")
	}
}
