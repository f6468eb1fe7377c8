package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/procurement-reconciler/internal/api/handler"
	"github.com/procurement-reconciler/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	ingestHandler *handler.IngestHandler,
	transactionHandler *handler.TransactionHandler,
	documentHandler *handler.DocumentHandler,
	reportHandler *handler.ReportHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Ingest runs
		ingest := v1.Group("/ingest")
		{
			ingest.POST("/scan", ingestHandler.Scan)
			ingest.POST("/process", ingestHandler.Process)
		}

		// Transaction operations
		transactions := v1.Group("/transactions")
		{
			transactions.GET("", transactionHandler.List)
			transactions.GET("/:id", transactionHandler.GetByID)
			transactions.GET("/:id/artifacts", transactionHandler.Artifacts)
			transactions.POST("/:id", transactionHandler.Action)
		}

		// Document listings
		v1.GET("/documents", documentHandler.List)

		// Reconciliation reports
		v1.GET("/reports", reportHandler.Summary)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
