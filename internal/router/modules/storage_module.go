package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zuetani/earth-tribe/internal/container"
	handlers "github.com/zuetani/earth-tribe/internal/interface/http"
	"github.com/zuetani/earth-tribe/internal/interface/middleware"
)

// StorageModule serves media uploads. Registered only when a bucket is configured.
type StorageModule struct {
	Handler *handlers.UploadHandler
}

func NewStorageModule(h *handlers.UploadHandler) *StorageModule {
	return &StorageModule{Handler: h}
}

func (m *StorageModule) Register(rg *gin.RouterGroup) {
	uploadLimiter := middleware.RateLimit(container.GetRedis(), 20, time.Minute, middleware.KeyByUserID(), nil)

	auth := protected(rg)
	{
		auth.POST("/uploads/validate", m.Handler.Validate)
		auth.POST("/uploads/avatar", uploadLimiter, m.Handler.Avatar)
		auth.POST("/uploads/posts", uploadLimiter, m.Handler.PostImage)
		auth.POST("/groups/:id/image", uploadLimiter, m.Handler.GroupImage)
		auth.GET("/uploads/url", m.Handler.URL)
		auth.DELETE("/uploads", m.Handler.Delete)
	}
}
