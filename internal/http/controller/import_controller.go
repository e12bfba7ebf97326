package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/catalog-admin/internal/console"
	"github.com/iyhunko/catalog-admin/internal/http/middleware"
	"github.com/iyhunko/catalog-admin/internal/importer"
	"github.com/iyhunko/catalog-admin/internal/service"
	"github.com/iyhunko/catalog-admin/internal/storage"
)

// ImportController handles bulk product imports.
type ImportController struct {
	imports Importer
	store   *console.Store
}

// NewImportController creates a new ImportController.
func NewImportController(imports Importer, store *console.Store) *ImportController {
	return &ImportController{
		imports: imports,
		store:   store,
	}
}

// ImportObjectRequest represents the request body for importing a stored object.
type ImportObjectRequest struct {
	Key string `json:"key" binding:"required"`
}

// ImportFile handles the multipart upload of a CSV file.
func (ic *ImportController) ImportFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if err := importer.CheckFileName(header.Filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if header.Size > storage.MaxObjectSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": storage.ErrObjectTooLarge.Error()})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}

	state, ok := consoleState(c, ic.store)
	if !ok {
		return
	}

	// the batch keeps going when the client goes away
	ctx := context.WithoutCancel(c.Request.Context())
	outcome, err := ic.imports.ImportFile(ctx, middleware.PrincipalFrom(c), header.Filename, string(payload), state.ApplyCreated)
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// ImportObject handles importing a CSV object from the import bucket.
func (ic *ImportController) ImportObject(c *gin.Context) {
	var req ImportObjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, ok := consoleState(c, ic.store)
	if !ok {
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	outcome, err := ic.imports.ImportObject(ctx, middleware.PrincipalFrom(c), req.Key, state.ApplyCreated)
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func respondImportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, importer.ErrNotCSV), errors.Is(err, importer.ErrEmptyPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrObjectTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": storage.ErrObjectTooLarge.Error()})
	case errors.Is(err, service.ErrImportSourceDisabled):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	default:
		slog.Error("Import failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to import products"})
	}
}
