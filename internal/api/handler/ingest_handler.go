package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/procurement-reconciler/internal/api/service"
	"github.com/procurement-reconciler/internal/pipeline"
)

// IngestHandler handles HTTP requests that drive ingest runs
type IngestHandler struct {
	ingestService service.IngestService
	logger        *slog.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(logger *slog.Logger, ingestService service.IngestService) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		logger:        logger,
	}
}

// Scan triggers a discovery run over the raw directory
func (h *IngestHandler) Scan(c *gin.Context) {
	summary, err := h.ingestService.Scan(c.Request.Context())
	if err != nil {
		h.logger.Error("Scan run failed", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, summary)
}

// Process triggers a processing run over pending documents. Supports limit,
// retryFailed=1, and documentId query parameters.
func (h *IngestHandler) Process(c *gin.Context) {
	opts := pipeline.ProcessOptions{
		RetryFailed: c.Query("retryFailed") == "1",
	}

	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			RespondBadRequest(c, "Invalid limit parameter")
			return
		}
		if limit > 0 {
			opts.Limit = limit
		}
	}

	if documentIDParam := c.Query("documentId"); documentIDParam != "" {
		documentID, err := uuid.Parse(documentIDParam)
		if err != nil {
			RespondBadRequest(c, "Invalid documentId parameter")
			return
		}
		opts.DocumentID = &documentID
	}

	summary, err := h.ingestService.Process(c.Request.Context(), opts)
	if err != nil {
		h.logger.Error("Processing run failed", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, summary)
}
