package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zuetani/earth-tribe/internal/container"
	handlers "github.com/zuetani/earth-tribe/internal/interface/http"
	"github.com/zuetani/earth-tribe/internal/interface/middleware"
)

type PostModule struct {
	Posts  *handlers.PostHandler
	Groups *handlers.GroupHandler
}

func NewPostModule(posts *handlers.PostHandler, groups *handlers.GroupHandler) *PostModule {
	return &PostModule{Posts: posts, Groups: groups}
}

func (m *PostModule) Register(rg *gin.RouterGroup) {
	createLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByUserID(), nil)

	auth := protected(rg)
	{
		auth.GET("/feed", m.Posts.Feed)
		auth.GET("/posts", m.Posts.List)
		auth.GET("/posts/search", m.Posts.Search)
		auth.POST("/posts", createLimiter, m.Posts.Create)
		auth.GET("/groups", m.Groups.List)
	}
}
