package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"csafcms/internal/domain/advisory"
	"csafcms/internal/domain/document"
	"csafcms/internal/domain/filter"
	"csafcms/internal/infrastructure/http/v1/dto"
)

// AdvisoryService is the advisory use case layer the handler drives.
type AdvisoryService interface {
	List(ctx context.Context, extra ...filter.Expression) ([]advisory.Information, error)
	Get(ctx context.Context, advisoryID string) (*advisory.Advisory, error)
	Create(ctx context.Context, owner string, csaf map[string]any) (string, string, error)
	Update(ctx context.Context, advisoryID, revision, owner string, csaf map[string]any) (string, error)
	Delete(ctx context.Context, advisoryID, revision string) error
	DeleteMany(ctx context.Context, items []document.IDAndRevision) error
	Export(ctx context.Context, extra ...filter.Expression) (io.ReadCloser, error)
}

// AdvisoryHandler handles /advisories.
type AdvisoryHandler struct {
	*BaseHandler
	service AdvisoryService
}

// NewAdvisoryHandler creates a new advisory handler.
func NewAdvisoryHandler(base *BaseHandler, service AdvisoryService) *AdvisoryHandler {
	return &AdvisoryHandler{BaseHandler: base, service: service}
}

// List handles GET /advisories.
func (h *AdvisoryHandler) List(c *gin.Context) {
	var q dto.AdvisoryFilter
	if !h.BindQuery(c, &q) {
		return
	}

	exprs, err := listFilter(q)
	if err != nil {
		h.Error(c, err)
		return
	}

	infos, err := h.service.List(c.Request.Context(), exprs...)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(infos))
}

// Export handles GET /advisories/export. It takes the list filters and streams
// the matching stored documents unmodified.
func (h *AdvisoryHandler) Export(c *gin.Context) {
	var q dto.AdvisoryFilter
	if !h.BindQuery(c, &q) {
		return
	}

	exprs, err := listFilter(q)
	if err != nil {
		h.Error(c, err)
		return
	}

	body, err := h.service.Export(c.Request.Context(), exprs...)
	if err != nil {
		h.Error(c, err)
		return
	}
	defer body.Close()
	c.DataFromReader(http.StatusOK, -1, "application/json", body, nil)
}

func listFilter(q dto.AdvisoryFilter) ([]filter.Expression, error) {
	var exprs []filter.Expression
	add := func(e filter.Comparison, err error) error {
		if err != nil {
			return err
		}
		exprs = append(exprs, e)
		return nil
	}

	if q.Title != "" {
		if err := add(filter.ContainsIgnoreCase(q.Title, advisory.TitleField.Segments()...)); err != nil {
			return nil, err
		}
	}
	if q.Owner != "" {
		if err := add(filter.Equal(q.Owner, advisory.OwnerField.Segments()...)); err != nil {
			return nil, err
		}
	}
	if q.WorkflowState != "" {
		if err := add(filter.Equal(q.WorkflowState, advisory.WorkflowStateField.Segments()...)); err != nil {
			return nil, err
		}
	}
	return exprs, nil
}

// Get handles GET /advisories/:id.
func (h *AdvisoryHandler) Get(c *gin.Context) {
	adv, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromAdvisory(adv))
}

// Create handles POST /advisories.
func (h *AdvisoryHandler) Create(c *gin.Context) {
	var req dto.CreateAdvisoryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	advisoryID, rev, err := h.service.Create(c.Request.Context(), req.Owner, req.CSAF)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, advisoryID, rev)
}

// Update handles PATCH /advisories/:id?revision=.
func (h *AdvisoryHandler) Update(c *gin.Context) {
	revision, ok := h.RequireQuery(c, "revision")
	if !ok {
		return
	}
	var req dto.UpdateAdvisoryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	advisoryID := c.Param("id")
	rev, err := h.service.Update(c.Request.Context(), advisoryID, revision, req.Owner, req.CSAF)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.RevisionResponse{ID: advisoryID, Revision: rev})
}

// Delete handles DELETE /advisories/:id?revision=.
func (h *AdvisoryHandler) Delete(c *gin.Context) {
	revision, ok := h.RequireQuery(c, "revision")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), revision); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// DeleteMany handles POST /advisories/delete.
func (h *AdvisoryHandler) DeleteMany(c *gin.Context) {
	var req dto.DeleteAdvisoriesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.DeleteMany(c.Request.Context(), req.Items); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
