package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/procurement-reconciler/internal/api"
	"github.com/procurement-reconciler/internal/api/service"
	"github.com/procurement-reconciler/internal/config"
	"github.com/procurement-reconciler/internal/data/mongo"
	"github.com/procurement-reconciler/internal/data/postgres"
	"github.com/procurement-reconciler/internal/domain/audit"
	"github.com/procurement-reconciler/internal/extraction"
	"github.com/procurement-reconciler/internal/logger"
	"github.com/procurement-reconciler/internal/pipeline"
	"github.com/procurement-reconciler/internal/platform/ai"
	"github.com/procurement-reconciler/internal/platform/blob"
	"github.com/procurement-reconciler/internal/platform/messaging/producers"
	"github.com/procurement-reconciler/internal/platform/persistence"
	"github.com/procurement-reconciler/internal/platform/rawfiles"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_server")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	documentRepo := postgres.NewDocumentRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	reviewRepo := postgres.NewReviewRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Audit broadcasting is optional; the recorder takes a nil publisher when
	// no audit topic is configured
	var publisher audit.Publisher
	auditPublisher, err := producers.NewAuditPublisher(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize audit publisher", "error", err)
		os.Exit(1)
	}
	if auditPublisher != nil {
		publisher = auditPublisher
	}
	recorder := audit.NewRecorder(auditRepo, publisher, log)

	// Blob store: GCS when a bucket is configured, local filesystem otherwise
	var blobStore blob.Store
	if cfg.Blob.Bucket != "" {
		blobStore, err = blob.NewGCSStore(appCtx, log, &cfg.Blob)
	} else {
		blobStore, err = blob.NewFSStore(cfg.Blob.LocalDir)
	}
	if err != nil {
		log.Error("Failed to initialize blob store", "error", err)
		os.Exit(1)
	}

	// Extraction falls back to heuristics when no AI key is configured
	var completer extraction.Completer
	if client := ai.NewClient(cfg.AI); client != nil {
		completer = client
	}
	extractor := extraction.NewExtractor(completer, log)

	scanner, err := rawfiles.NewScanner(log, cfg.Scanner.RawDataDir, cfg.Scanner.HasherPool)
	if err != nil {
		log.Error("Failed to initialize raw file scanner", "error", err)
		os.Exit(1)
	}

	// Initialize the ingest pipeline
	artifactStore := pipeline.NewArtifactStore(blobStore, log)
	pipelineService := pipeline.NewService(
		cfg.Pipeline,
		documentRepo,
		transactionRepo,
		reviewRepo,
		postgresDB,
		recorder,
		scanner,
		rawfiles.NewTextReader(),
		extractor,
		artifactStore,
		log,
	)

	// Initialize services
	ingestService := service.NewIngestService(pipelineService)
	transactionService := service.NewTransactionService(log, transactionRepo, reviewRepo, auditRepo, recorder, ingestService, artifactStore)
	documentService := service.NewDocumentService(log, documentRepo)
	reportService := service.NewReportService(log, documentRepo, transactionRepo)

	// Initialize REST server
	server := api.NewServer(log, cfg, ingestService, transactionService, documentService, reportService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	scanner.Release()
	postgresDB.Close()

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = auditPublisher.Close(); err != nil {
		log.Error("Error closing audit publisher", "error", err)
	}

	if err = blobStore.Close(); err != nil {
		log.Error("Error closing blob store", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
