package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gracehq/chms/internal/export"
	"github.com/gracehq/chms/internal/logger"
)

// ExportHandler exposes the export pipeline over HTTP.
type ExportHandler struct {
	exports *export.Service
	logger  *logger.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(exports *export.Service, log *logger.Logger) *ExportHandler {
	return &ExportHandler{
		exports: exports,
		logger:  log,
	}
}

// GetOptions handles GET /api/v1/export/options. The response is static
// configuration: supported content types with field lists and size hints,
// formats and date-range presets.
func (h *ExportHandler) GetOptions(c *gin.Context) {
	c.JSON(http.StatusOK, export.ExportOptions())
}

// CreateExport handles POST /api/v1/export.
func (h *ExportHandler) CreateExport(c *gin.Context) {
	var req export.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	// Auth is handled upstream; the principal arrives as an opaque header.
	createdBy := c.GetHeader("X-User-ID")

	result, err := h.exports.CreateExport(c.Request.Context(), &req, createdBy)
	if err != nil {
		switch {
		case errors.Is(err, export.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, export.ErrQueueFull):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create export: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, result)
}

// GetStatus handles GET /api/v1/export/:id.
func (h *ExportHandler) GetStatus(c *gin.Context) {
	status, err := h.exports.GetStatus(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Export job not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// Download handles GET /api/v1/export/:id/download, streaming the finished
// artifact with a content-disposition attachment header.
func (h *ExportHandler) Download(c *gin.Context) {
	id := c.Param("id")
	reader, fileName, size, err := h.exports.Download(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, export.ErrJobNotReady):
			c.JSON(http.StatusConflict, gin.H{"error": "Export is not ready for download"})
		case errors.Is(err, export.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Export job not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open artifact: " + err.Error()})
		}
		return
	}
	defer reader.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": `attachment; filename="` + fileName + `"`,
	}
	c.DataFromReader(http.StatusOK, size, contentTypeFor(fileName), reader, extraHeaders)
}

// History handles GET /api/v1/export/history.
func (h *ExportHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	c.JSON(http.StatusOK, h.exports.ListHistory(page, limit))
}

// DeleteExport handles DELETE /api/v1/export/:id.
func (h *ExportHandler) DeleteExport(c *gin.Context) {
	warning, err := h.exports.DeleteExport(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Export job not found"})
		return
	}

	resp := gin.H{"message": "Export deleted"}
	if warning != "" {
		resp["warning"] = warning
	}
	c.JSON(http.StatusOK, resp)
}

func contentTypeFor(fileName string) string {
	switch {
	case strings.HasSuffix(fileName, ".zip"):
		return "application/zip"
	case strings.HasSuffix(fileName, ".json"):
		return "application/json"
	case strings.HasSuffix(fileName, ".csv"):
		return "text/csv"
	case strings.HasSuffix(fileName, ".xml"):
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}
