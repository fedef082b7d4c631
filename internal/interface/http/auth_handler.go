package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/zuetani/earth-tribe/internal/application"
	"github.com/zuetani/earth-tribe/internal/domain/entity"
	"github.com/zuetani/earth-tribe/internal/interface/middleware"
	"github.com/zuetani/earth-tribe/internal/session"
	"github.com/zuetani/earth-tribe/pkg/helpers"
	"github.com/zuetani/earth-tribe/pkg/response"
	"github.com/zuetani/earth-tribe/pkg/validation"
)

// AuthService is the session/profile surface used over HTTP.
type AuthService interface {
	Login(ctx context.Context, sess *session.Session, email, password string) (*entity.User, app.TokenPair, error)
	Register(ctx context.Context, sess *session.Session, email, password, name string) (*entity.User, app.TokenPair, error)
	Logout(ctx context.Context, sess *session.Session) error
	CurrentUser(sess *session.Session) *entity.User
	UpdateProfile(ctx context.Context, sess *session.Session, in app.ProfileUpdate) (*entity.User, error)
	Refresh(ctx context.Context, refreshToken string) (app.TokenPair, string, error)
}

type AuthHandler struct {
	Svc     AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc AuthService, logger *logrus.Logger, cookies *helpers.Manager) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: cookies}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Name     string `json:"name" binding:"required,displayname"`
}

type updateProfileRequest struct {
	Name      *string  `json:"name" binding:"omitempty,displayname"`
	Avatar    *string  `json:"avatar" binding:"omitempty,url"`
	Bio       *string  `json:"bio" binding:"omitempty,max=500"`
	Location  *string  `json:"location" binding:"omitempty,max=120"`
	Interests []string `json:"interests" binding:"omitempty,max=30,dive,tag"`
}

func tokenMeta(pair app.TokenPair) map[string]any {
	return map[string]any{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry}
}

// resolvedSession waits for cookie restoration so a later sign-in is not
// overwritten by it.
func resolvedSession(c *gin.Context) (*session.Session, bool) {
	sess := middleware.SessionFrom(c)
	if _, err := sess.Await(c.Request.Context()); err != nil {
		response.Fail(c, http.StatusServiceUnavailable, "session is still resolving", nil)
		return nil, false
	}
	return sess, true
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	sess, ok := resolvedSession(c)
	if !ok {
		return
	}

	u, pair, err := h.Svc.Login(c.Request.Context(), sess, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.OK(c, http.StatusOK, u, "login successful", tokenMeta(pair))
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	sess, ok := resolvedSession(c)
	if !ok {
		return
	}

	u, pair, err := h.Svc.Register(c.Request.Context(), sess, req.Email, req.Password, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.OK(c, http.StatusCreated, u, "registration successful", tokenMeta(pair))
}

// Logout always clears the cookies, even if the server-side session could not be dropped.
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, ok := resolvedSession(c)
	if !ok {
		return
	}
	h.Cookies.Clear(c)
	if err := h.Svc.Logout(c.Request.Context(), sess); err != nil {
		writeError(c, err)
		return
	}
	response.OK[any](c, http.StatusOK, map[string]any{"logged_out": true}, "logged out", nil)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie(helpers.RefreshTokenCookie)
	if err != nil || refresh == "" {
		response.Fail(c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, _, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		h.Cookies.Clear(c)
		writeError(c, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.OK[any](c, http.StatusOK, map[string]any{"refreshed": true}, "token refreshed", tokenMeta(pair))
}

// Me returns the signed-in user. Route must be behind Guard(true).
func (h *AuthHandler) Me(c *gin.Context) {
	u := h.Svc.CurrentUser(middleware.SessionFrom(c))
	if u == nil {
		writeError(c, app.ErrNotAuthenticated)
		return
	}
	response.OK(c, http.StatusOK, u, "profile", nil)
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), middleware.SessionFrom(c), app.ProfileUpdate{
		Name:      req.Name,
		Avatar:    req.Avatar,
		Bio:       req.Bio,
		Location:  req.Location,
		Interests: req.Interests,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, u, "profile updated", nil)
}
