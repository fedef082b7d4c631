package router

import "github.com/gin-gonic/gin"

// Module is a feature area that mounts its own routes, guards and rate limits.
type Module interface {
	Register(rg *gin.RouterGroup)
}
