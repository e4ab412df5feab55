// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
// Each domain module implements this interface to encapsulate its own
// route setup, keeping the main router decoupled from specific endpoints.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router group.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared route groups for module registration.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the /api/v1 route group. Routes here authenticate themselves
	// (provider signatures).
	V1 *gin.RouterGroup
	// Webhooks is /api/v1/webhook behind the shared webhook API key.
	Webhooks *gin.RouterGroup
	// Admin is /api/v1/admin behind the same key, for studio staff tooling.
	Admin *gin.RouterGroup
}
