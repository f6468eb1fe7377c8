package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/procurement-reconciler/internal/api/service"
	"github.com/procurement-reconciler/internal/config"
	"github.com/procurement-reconciler/internal/domain/document"
)

// DocumentHandler handles HTTP requests for document operations
type DocumentHandler struct {
	documentService service.DocumentService
	pipelineCfg     config.PipelineConfig
	logger          *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(logger *slog.Logger, documentService service.DocumentService, pipelineCfg config.PipelineConfig) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		pipelineCfg:     pipelineCfg,
		logger:          logger,
	}
}

// List returns documents matching the query filters. lowConfidence=1 filters
// below the configured confidence threshold; confidenceBelow overrides it.
func (h *DocumentHandler) List(c *gin.Context) {
	filters := document.ListFilters{
		Status:  document.Status(c.Query("status")),
		DocType: document.Type(c.Query("docType")),
		Query:   c.Query("q"),
	}

	if confidenceParam := c.Query("confidenceBelow"); confidenceParam != "" {
		threshold, err := strconv.ParseFloat(confidenceParam, 64)
		if err != nil {
			RespondBadRequest(c, "Invalid confidenceBelow parameter")
			return
		}
		filters.ConfidenceBelow = &threshold
	} else if c.Query("lowConfidence") == "1" {
		threshold := h.pipelineCfg.ConfidenceThreshold
		filters.ConfidenceBelow = &threshold
	}

	docs, err := h.documentService.List(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("Failed to list documents", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"items": docs, "count": len(docs)})
}
