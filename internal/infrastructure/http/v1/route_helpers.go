package v1

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar is implemented by handlers that own a route group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Mount registers handler under path with optional group middleware.
//
// Usage:
//
//	Mount(protected, "/carts", handlers.NewCartHandler(base, cartService))
func Mount(rg *gin.RouterGroup, path string, handler RouteRegistrar, mw ...gin.HandlerFunc) {
	group := rg.Group(path)
	if len(mw) > 0 {
		group.Use(mw...)
	}
	handler.RegisterRoutes(group)
}
