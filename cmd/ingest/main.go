// Command ingest runs one discovery and processing pass over the raw
// directory and exits. It is meant for cron jobs and local runs; the API
// server exposes the same operations over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

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
	scanOnly := flag.Bool("scan-only", false, "register new raw files without processing them")
	limit := flag.Int("limit", 0, "maximum documents to process (0 uses the configured batch size)")
	retryFailed := flag.Bool("retry-failed", false, "include FAILED documents in the processing run")
	flag.Parse()

	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("ingest")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer postgresDB.Close()

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := mongoDB.Close(appCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}()

	documentRepo := postgres.NewDocumentRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	reviewRepo := postgres.NewReviewRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	var publisher audit.Publisher
	auditPublisher, err := producers.NewAuditPublisher(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize audit publisher", "error", err)
		os.Exit(1)
	}
	if auditPublisher != nil {
		publisher = auditPublisher
	}
	defer func() {
		if err := auditPublisher.Close(); err != nil {
			log.Error("Error closing audit publisher", "error", err)
		}
	}()
	recorder := audit.NewRecorder(auditRepo, publisher, log)

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
	defer func() {
		if err := blobStore.Close(); err != nil {
			log.Error("Error closing blob store", "error", err)
		}
	}()

	var completer extraction.Completer
	if client := ai.NewClient(cfg.AI); client != nil {
		completer = client
	} else {
		log.Warn("No AI credentials configured; using heuristic extraction")
	}
	extractor := extraction.NewExtractor(completer, log)

	scanner, err := rawfiles.NewScanner(log, cfg.Scanner.RawDataDir, cfg.Scanner.HasherPool)
	if err != nil {
		log.Error("Failed to initialize raw file scanner", "error", err)
		os.Exit(1)
	}
	defer scanner.Release()

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
		pipeline.NewArtifactStore(blobStore, log),
		log,
	)

	scanSummary, err := pipelineService.ScanAndRegister(appCtx)
	if err != nil {
		log.Error("Scan run failed", "error", err)
		os.Exit(1)
	}
	log.Info("Scan run completed",
		"scanned", scanSummary.Scanned,
		"discovered", scanSummary.Discovered,
		"already_processed", scanSummary.AlreadyProcessed,
		"retriable_existing", scanSummary.RetriableExisting,
		"unique_documents", scanSummary.UniqueDocumentsInDB,
	)

	if *scanOnly {
		return
	}

	processSummary, err := pipelineService.ProcessPending(appCtx, pipeline.ProcessOptions{
		Limit:       *limit,
		RetryFailed: *retryFailed,
	})
	if err != nil {
		log.Error("Processing run failed", "error", err)
		os.Exit(1)
	}
	log.Info("Processing run completed",
		"requested_limit", processSummary.RequestedLimit,
		"processed", processSummary.Processed,
		"failed", processSummary.Failed,
		"skipped", processSummary.Skipped,
		"candidates", processSummary.ScannedCandidates,
	)
}
