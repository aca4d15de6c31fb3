package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/consultant-worklog/internal/constants"
	"github.com/yukikurage/consultant-worklog/internal/dto"
	apierrors "github.com/yukikurage/consultant-worklog/internal/errors"
	"github.com/yukikurage/consultant-worklog/internal/middleware"
	"github.com/yukikurage/consultant-worklog/internal/services"
	"github.com/yukikurage/consultant-worklog/internal/store"
)

// DocumentHandler exposes the requirement and task collections over HTTP.
type DocumentHandler struct {
	documents *services.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documents *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
	}
}

// Create stores a new document.
func (h *DocumentHandler) Create(c *gin.Context) {
	userID, collection, ok := documentScope(c)
	if !ok {
		return
	}

	var fields store.Fields
	if err := c.ShouldBindJSON(&fields); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	doc, err := h.documents.Create(c.Request.Context(), userID, collection, fields)
	if err != nil {
		apierrors.StoreError(c, err)
		return
	}

	created := doc.(store.Document)
	c.JSON(http.StatusCreated, dto.CreatedDocument{
		ID:        created.GetID(),
		Version:   created.GetVersion(),
		CreatedAt: created.GetCreatedAt(),
	})
}

// Get returns a single document.
func (h *DocumentHandler) Get(c *gin.Context) {
	userID, collection, ok := documentScope(c)
	if !ok {
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), userID, collection, c.Param("id"))
	if err != nil {
		apierrors.StoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// List returns the documents matching ?field=F&value=V.
func (h *DocumentHandler) List(c *gin.Context) {
	userID, collection, ok := documentScope(c)
	if !ok {
		return
	}

	var filter *store.Filter
	if field := c.Query("field"); field != "" {
		filter = store.Eq(field, c.Query("value"))
	}

	docs, err := h.documents.List(c.Request.Context(), userID, collection, filter)
	if err != nil {
		apierrors.StoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// Update merges the body into a document. An If-Match header makes the write
// conditional on the stored version.
func (h *DocumentHandler) Update(c *gin.Context) {
	userID, collection, ok := documentScope(c)
	if !ok {
		return
	}

	var opts []store.UpdateOption
	if header := c.GetHeader(constants.IfMatchHeader); header != "" {
		version, err := strconv.ParseInt(strings.Trim(header, `"`), 10, 64)
		if err != nil || version < 1 {
			apierrors.BadRequest(c, "Invalid If-Match version")
			return
		}
		opts = append(opts, store.IfVersion(version))
	}

	var fields store.Fields
	if err := c.ShouldBindJSON(&fields); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	version, err := h.documents.Update(c.Request.Context(), userID, collection, c.Param("id"), fields, opts...)
	if err != nil {
		apierrors.StoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.VersionResponse{Version: version})
}

// Delete removes a document.
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, collection, ok := documentScope(c)
	if !ok {
		return
	}

	if err := h.documents.Delete(c.Request.Context(), userID, collection, c.Param("id")); err != nil {
		apierrors.StoreError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func documentScope(c *gin.Context) (string, string, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return "", "", false
	}
	return userID, middleware.GetCollection(c), true
}
