package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"csafcms/internal/core/apperror"
	"csafcms/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewInvalidRequest("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewInvalidRequest("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// RequireQuery returns a mandatory query parameter.
func (h *BaseHandler) RequireQuery(c *gin.Context, key string) (string, bool) {
	val := c.Query(key)
	if val == "" {
		h.Error(c, apperror.NewInvalidRequest("missing query parameter").WithDetail("parameter", key))
		return "", false
	}
	return val, true
}

// Error processes error and sends appropriate response.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	h.HandleError(c, err)
}

// HandleError registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler (single source of truth).
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Created sends 201 response with id and revision.
func (h *BaseHandler) Created(c *gin.Context, id, revision string) {
	c.JSON(http.StatusCreated, dto.RevisionResponse{ID: id, Revision: revision})
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
