package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zuetani/earth-tribe/internal/container"
	handlers "github.com/zuetani/earth-tribe/internal/interface/http"
	"github.com/zuetani/earth-tribe/internal/interface/middleware"
)

// AuthModule serves sign-in, registration and the signed-in profile.
// Public: POST /api/auth/{login,register,refresh,logout}
// Protected: GET/PUT /api/profile
type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	loginLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIP(), nil)
	registerLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIP(), nil)
	refreshLimiter := middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIP(), nil)

	rg.POST("/auth/login", loginLimiter, m.Handler.Login)
	rg.POST("/auth/register", registerLimiter, m.Handler.Register)
	rg.POST("/auth/refresh", refreshLimiter, m.Handler.Refresh)
	rg.POST("/auth/logout", m.Handler.Logout)

	auth := protected(rg)
	{
		auth.GET("/profile", m.Handler.Me)
		auth.PUT("/profile", m.Handler.UpdateProfile)
	}
}

// protected returns a group behind the auth guard with the per-user limits.
func protected(rg *gin.RouterGroup) *gin.RouterGroup {
	rdb := container.GetRedis()
	g := rg.Group("/")
	g.Use(middleware.Guard(true, container.GetConfig().LoginPath))
	g.Use(
		middleware.RateLimit(rdb, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	return g
}
