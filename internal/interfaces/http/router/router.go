package router

import (
	"github.com/gin-gonic/gin"
)

// Registrar mounts a handler's routes onto a versioned API group.
type Registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Mount attaches every registrar under /api/<version> on the engine.
// Handlers own their own sub-paths, so ordering does not matter.
func Mount(engine *gin.Engine, version string, handlers ...Registrar) {
	api := engine.Group("/api/" + version)
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}
}
