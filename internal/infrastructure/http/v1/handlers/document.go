package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// DocumentReader streams stored documents.
type DocumentReader interface {
	ReadRaw(ctx context.Context, id string) (io.ReadCloser, string, error)
}

// DocumentHandler serves stored documents as they are, without decoding.
type DocumentHandler struct {
	*BaseHandler
	store DocumentReader
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(base *BaseHandler, store DocumentReader) *DocumentHandler {
	return &DocumentHandler{BaseHandler: base, store: store}
}

// Get handles GET /documents/:id. The revision is sent as ETag.
func (h *DocumentHandler) Get(c *gin.Context) {
	body, rev, err := h.store.ReadRaw(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	defer body.Close()

	var headers map[string]string
	if rev != "" {
		headers = map[string]string{"ETag": strconv.Quote(rev)}
	}
	c.DataFromReader(http.StatusOK, -1, "application/json", body, headers)
}
