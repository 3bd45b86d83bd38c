package importexport

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// maxImportBytes caps the size of an uploaded document
const maxImportBytes = 10 << 20

// Handler handles import/export requests
type Handler struct {
	db *gorm.DB

	// AfterImport runs once an import has added rows, e.g. to reload the page state
	AfterImport func(ctx context.Context) error
}

// NewHandler creates a new import/export handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// Import imports a JSON or YAML document from the request body
func (h *Handler) Import(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	doc, err := Parse(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(doc.Groups) == 0 && len(doc.Unassigned) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "groups or unassigned cards are required"})
		return
	}

	result, err := Import(c.Request.Context(), h.db, doc)
	if err != nil {
		slog.Error("Import failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Import failed"})
		return
	}

	if h.AfterImport != nil && (result.Imported > 0 || result.Members > 0 || result.Groups > 0) {
		if err := h.AfterImport(c.Request.Context()); err != nil {
			slog.Warn("Failed to refresh after import", "error", err)
		}
	}

	c.JSON(http.StatusOK, result)
}

// Export exports the collection as JSON, or YAML with ?format=yaml
func (h *Handler) Export(c *gin.Context) {
	doc, err := Export(c.Request.Context(), h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export collection"})
		return
	}

	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "yaml" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or yaml"})
		return
	}
	if c.Query("download") == "true" {
		c.Header("Content-Disposition", "attachment; filename=photocards-export."+format)
	}

	switch format {
	case "json":
		c.JSON(http.StatusOK, doc)
	case "yaml":
		out, err := yaml.Marshal(doc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export collection"})
			return
		}
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", out)
	}
}

// RegisterRoutes registers import/export routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", h.Import)
	rg.GET("/export", h.Export)
}
