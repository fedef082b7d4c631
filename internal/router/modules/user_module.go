package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/zuetani/earth-tribe/internal/interface/http"
)

// UserModule serves traveller profiles. All routes are protected.
type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := protected(rg)
	{
		auth.GET("/users", m.Handler.List)
		auth.GET("/users/search", m.Handler.Search)
		auth.GET("/users/:id", m.Handler.Get)
	}
}
