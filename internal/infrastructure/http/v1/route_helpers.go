package v1

import (
	"github.com/gin-gonic/gin"
)

// AdvisoryRouteHandler defines the interface for advisory handlers.
type AdvisoryRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	DeleteMany(c *gin.Context)
	Export(c *gin.Context)
}

// RegisterAdvisoryRoutes registers the advisory routes on rg.
//
// Routes:
//   - GET    /           - List with optional title, owner, workflowState filters
//   - POST   /           - Create
//   - POST   /delete     - Delete many by id and revision
//   - GET    /export     - Stream stored documents, same filters as List
//   - GET    /:id        - Get by id
//   - PATCH  /:id        - Update (?revision= required)
//   - DELETE /:id        - Delete (?revision= required)
func RegisterAdvisoryRoutes(rg *gin.RouterGroup, h AdvisoryRouteHandler) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/delete", h.DeleteMany)
	rg.GET("/export", h.Export)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
