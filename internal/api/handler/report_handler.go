package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/procurement-reconciler/internal/api/service"
)

// ReportHandler handles HTTP requests for reconciliation reports
type ReportHandler struct {
	reportService service.ReportService
	logger        *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(logger *slog.Logger, reportService service.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// Summary returns the KPI counters, state breakdown, and exception queue
func (h *ReportHandler) Summary(c *gin.Context) {
	summary, err := h.reportService.Summary(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build reports summary", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, summary)
}
