package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	app "github.com/zuetani/earth-tribe/internal/application"
	"github.com/zuetani/earth-tribe/internal/domain/entity"
	"github.com/zuetani/earth-tribe/pkg/response"
)

// ContentService is the read/write surface for posts, profiles and groups.
type ContentService interface {
	CreatePost(ctx context.Context, in app.NewPost) (*entity.Post, error)
	GetPosts(ctx context.Context) ([]*entity.Post, error)
	GetFeed(ctx context.Context) (*app.Feed, error)
	GetUsers(ctx context.Context) ([]*entity.User, error)
	GetUserByID(ctx context.Context, id string) (*entity.User, error)
	GetGroups(ctx context.Context) ([]*entity.Group, error)
	SearchPosts(ctx context.Context, q string) ([]*entity.Post, error)
	SearchUsers(ctx context.Context, q string) ([]*entity.User, error)
}

type UserHandler struct {
	Svc ContentService
}

func NewUserHandler(svc ContentService) *UserHandler {
	return &UserHandler{Svc: svc}
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.GetUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, users, "users", map[string]any{"count": len(users)})
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if u == nil {
		response.Fail(c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.OK(c, http.StatusOK, u, "user", nil)
}

func (h *UserHandler) Search(c *gin.Context) {
	users, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, users, "search results", map[string]any{"count": len(users)})
}
