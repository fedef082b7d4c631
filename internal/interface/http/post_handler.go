package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	app "github.com/zuetani/earth-tribe/internal/application"
	"github.com/zuetani/earth-tribe/internal/interface/middleware"
	"github.com/zuetani/earth-tribe/pkg/response"
	"github.com/zuetani/earth-tribe/pkg/validation"
)

type PostHandler struct {
	Svc ContentService
}

func NewPostHandler(svc ContentService) *PostHandler {
	return &PostHandler{Svc: svc}
}

type createPostRequest struct {
	Title    string   `json:"title" binding:"max=200"`
	Content  string   `json:"content" binding:"max=10000"`
	Images   []string `json:"images" binding:"omitempty,max=10,dive,url"`
	Location string   `json:"location" binding:"max=120"`
	Tags     []string `json:"tags" binding:"omitempty,max=20,dive,tag"`
}

// Create posts as the signed-in user; any userId in the body is ignored.
func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	p, err := h.Svc.CreatePost(c.Request.Context(), app.NewPost{
		UserID:   c.GetString(middleware.CtxUserIDKey),
		Title:    req.Title,
		Content:  req.Content,
		Images:   req.Images,
		Location: req.Location,
		Tags:     req.Tags,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusCreated, p, "post created", nil)
}

func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.Svc.GetPosts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, posts, "posts", map[string]any{"count": len(posts)})
}

func (h *PostHandler) Search(c *gin.Context) {
	posts, err := h.Svc.SearchPosts(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, posts, "search results", map[string]any{"count": len(posts)})
}

func (h *PostHandler) Feed(c *gin.Context) {
	feed, err := h.Svc.GetFeed(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, feed, "feed", nil)
}

type GroupHandler struct {
	Svc ContentService
}

func NewGroupHandler(svc ContentService) *GroupHandler {
	return &GroupHandler{Svc: svc}
}

func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.Svc.GetGroups(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, groups, "groups", map[string]any{"count": len(groups)})
}
