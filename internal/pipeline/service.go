// Package pipeline orchestrates document discovery, extraction, routing, and
// transaction reconciliation. Every run is idempotent: documents are
// deduplicated by content hash and reprocessing converges on the same state.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/procurement-reconciler/internal/config"
	"github.com/procurement-reconciler/internal/domain/audit"
	"github.com/procurement-reconciler/internal/domain/document"
	"github.com/procurement-reconciler/internal/domain/review"
	"github.com/procurement-reconciler/internal/domain/transaction"
	"github.com/procurement-reconciler/internal/extraction"
	"github.com/procurement-reconciler/internal/reconcile"
)

// ScanSummary reports one discovery run
type ScanSummary struct {
	Scanned             int   `json:"scanned"`
	Discovered          int   `json:"discovered"`
	AlreadyProcessed    int   `json:"alreadyProcessed"`
	RetriableExisting   int   `json:"retriableExisting"`
	UniqueDocumentsInDB int64 `json:"uniqueDocumentsInDb"`
}

// ProcessSummary reports one processing run
type ProcessSummary struct {
	RequestedLimit    int `json:"requestedLimit"`
	Processed         int `json:"processed"`
	Failed            int `json:"failed"`
	Skipped           int `json:"skipped"`
	ScannedCandidates int `json:"scannedCandidates"`
}

// ProcessOptions tunes a processing run. A non-nil DocumentID forces a single
// document through regardless of its current status.
type ProcessOptions struct {
	Limit       int
	RetryFailed bool
	DocumentID  *uuid.UUID
}

// Service runs the ingest pipeline end to end
type Service struct {
	cfg          config.PipelineConfig
	documents    document.Repository
	transactions transaction.Repository
	reviews      review.Repository
	txRunner     TxRunner
	recorder     *audit.Recorder
	scanner      Scanner
	textReader   TextReader
	extractor    Extractor
	artifacts    *ArtifactStore
	logger       *slog.Logger
}

func NewService(
	cfg config.PipelineConfig,
	documents document.Repository,
	transactions transaction.Repository,
	reviews review.Repository,
	txRunner TxRunner,
	recorder *audit.Recorder,
	scanner Scanner,
	textReader TextReader,
	extractor Extractor,
	artifacts *ArtifactStore,
	logger *slog.Logger,
) *Service {
	return &Service{
		cfg:          cfg,
		documents:    documents,
		transactions: transactions,
		reviews:      reviews,
		txRunner:     txRunner,
		recorder:     recorder,
		scanner:      scanner,
		textReader:   textReader,
		extractor:    extractor,
		artifacts:    artifacts,
		logger:       logger,
	}
}

// ScanAndRegister walks the raw directory and registers every unseen file as a
// NEW document. Re-discovered files only get their location metadata refreshed;
// content identity is the SHA-256 hash, so renames never create duplicates.
func (s *Service) ScanAndRegister(ctx context.Context) (ScanSummary, error) {
	files, err := s.scanner.Scan()
	if err != nil {
		return ScanSummary{}, fmt.Errorf("failed to scan raw directory: %w", err)
	}

	summary := ScanSummary{Scanned: len(files)}

	for _, file := range files {
		existing, err := s.documents.GetBySHA256(ctx, file.SHA256)
		if err != nil {
			return summary, err
		}

		if existing == nil {
			created := document.NewDiscovered(file)
			if err := s.documents.Create(ctx, created); err != nil {
				return summary, err
			}
			summary.Discovered++

			event := audit.NewEvent(audit.EventDiscovered,
				fmt.Sprintf("Discovered raw document %s", file.FileName),
				map[string]any{"sourcePath": file.SourcePath, "sha256": file.SHA256},
			).ForDocument(created.ID)
			if err := s.recorder.Record(ctx, event); err != nil {
				return summary, err
			}
			continue
		}

		if err := s.documents.TouchMetadata(ctx, existing.ID, document.SourceMetadata{
			SourcePath: file.SourcePath,
			FileName:   file.FileName,
			MimeType:   file.MimeType,
			SizeBytes:  file.SizeBytes,
		}); err != nil {
			return summary, err
		}

		if existing.Status == document.StatusProcessed {
			summary.AlreadyProcessed++
		} else {
			summary.RetriableExisting++
		}
	}

	unique, err := s.documents.CountDistinctHashes(ctx)
	if err != nil {
		return summary, err
	}
	summary.UniqueDocumentsInDB = unique

	return summary, nil
}

// ProcessPending extracts and reconciles pending documents. Failures are
// isolated per document: a failed extraction marks the document FAILED, opens
// a manual review item, and never aborts the batch.
func (s *Service) ProcessPending(ctx context.Context, opts ProcessOptions) (ProcessSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.ProcessBatchSize
	}

	forceDocumentRun := opts.DocumentID != nil

	var candidates []*document.Document
	if forceDocumentRun {
		doc, err := s.documents.GetByID(ctx, *opts.DocumentID)
		if err != nil {
			return ProcessSummary{RequestedLimit: limit}, err
		}
		candidates = []*document.Document{doc}
	} else {
		pending, err := s.documents.ListPending(ctx, limit, opts.RetryFailed)
		if err != nil {
			return ProcessSummary{RequestedLimit: limit}, err
		}
		candidates = pending
	}

	summary := ProcessSummary{
		RequestedLimit:    limit,
		ScannedCandidates: len(candidates),
	}

	for _, doc := range candidates {
		if !forceDocumentRun {
			if doc.Status == document.StatusProcessed {
				summary.Skipped++
				continue
			}

			claimed, err := s.documents.Claim(ctx, doc.ID, doc.Version)
			if err != nil {
				return summary, err
			}
			if !claimed {
				// Another run picked it up between listing and claiming
				summary.Skipped++
				continue
			}
		}

		if err := s.processOne(ctx, doc); err != nil {
			summary.Failed++
			if failErr := s.failDocument(ctx, doc, err); failErr != nil {
				return summary, failErr
			}
			continue
		}
		summary.Processed++
	}

	return summary, nil
}

// RerunDocument forces a single document back through extraction and
// reconciliation regardless of its current status
func (s *Service) RerunDocument(ctx context.Context, documentID uuid.UUID) (ProcessSummary, error) {
	return s.ProcessPending(ctx, ProcessOptions{
		Limit:       1,
		RetryFailed: true,
		DocumentID:  &documentID,
	})
}

func (s *Service) processOne(ctx context.Context, doc *document.Document) error {
	event := audit.NewEvent(audit.EventIngested,
		fmt.Sprintf("Processing document %s", doc.FileName),
		map[string]any{"sourcePath": doc.SourcePath},
	).ForDocument(doc.ID)
	if err := s.recorder.Record(ctx, event); err != nil {
		return err
	}

	rawText, err := s.textReader.ReadText(doc.SourcePath)
	if err != nil {
		return err
	}

	extracted, err := s.extractor.Extract(ctx, extraction.Input{
		RawText:  rawText,
		FileName: doc.FileName,
	})
	if err != nil {
		return err
	}

	// Invoices referencing a known PO get a second pass with the PO's record
	// as context, which pins vendor and currency fields the invoice omits
	if extracted.DocType == document.TypeInvoice && extracted.PONumber != "" {
		poDoc, err := s.documents.FindProcessedPO(ctx, extracted.PONumber)
		if err != nil {
			return err
		}
		if poDoc != nil && poDoc.Extracted != nil {
			extracted, err = s.extractor.Extract(ctx, extraction.Input{
				RawText:   rawText,
				FileName:  doc.FileName,
				POContext: poDoc.Extracted,
			})
			if err != nil {
				return err
			}
		}
	}

	processedDoc, err := s.documents.MarkProcessed(ctx, doc.ID, document.ProcessedFields{
		RawText:       rawText,
		DocType:       extracted.DocType,
		Confidence:    extracted.Confidence,
		Extracted:     extracted,
		PONumber:      extracted.PONumber,
		InvoiceNumber: extracted.InvoiceNumber,
		GRNNumber:     extracted.GRNNumber,
		VendorName:    extracted.VendorName,
		VendorID:      extracted.VendorID,
		Country:       extracted.Country,
		Currency:      extracted.Currency,
		DocDate:       ParseISODate(extracted.DocDate),
		DueDate:       ParseISODate(extracted.DueDate),
		TotalAmount:   extracted.TotalAmount,
		TaxAmount:     extracted.TaxAmount,
	})
	if err != nil {
		return err
	}

	event = audit.NewEvent(audit.EventExtracted,
		fmt.Sprintf("Extraction completed for %s", doc.FileName),
		map[string]any{
			"docType":       string(extracted.DocType),
			"confidence":    extracted.Confidence,
			"poNumber":      extracted.PONumber,
			"invoiceNumber": extracted.InvoiceNumber,
			"grnNumber":     extracted.GRNNumber,
		},
	).ForDocument(processedDoc.ID)
	if err := s.recorder.Record(ctx, event); err != nil {
		return err
	}

	transactionKey := BuildTransactionKey(extracted.PONumber, doc.SHA256)
	txn, err := s.transactions.Upsert(ctx, transaction.UpsertFields{
		TransactionKey: transactionKey,
		PONumber:       extracted.PONumber,
		VendorName:     extracted.VendorName,
		Country:        extracted.Country,
		Currency:       extracted.Currency,
	})
	if err != nil {
		return err
	}

	role := transaction.RoleForDocType(extracted.DocType)
	if err := s.transactions.AttachDocument(ctx, txn.ID, processedDoc.ID, role); err != nil {
		return err
	}

	if err := s.artifacts.SyncDocument(ctx, transactionKey, doc.SourcePath, doc.FileName, processedDoc.ID, extracted); err != nil {
		return err
	}

	event = audit.NewEvent(audit.EventRouted,
		fmt.Sprintf("Document attached to transaction %s", transactionKey),
		map[string]any{"role": string(role)},
	).ForTransaction(txn.ID).ForDocument(processedDoc.ID)
	if err := s.recorder.Record(ctx, event); err != nil {
		return err
	}

	if _, err := s.Recompute(ctx, txn.ID); err != nil {
		return err
	}

	return nil
}

func (s *Service) failDocument(ctx context.Context, doc *document.Document, cause error) error {
	message := cause.Error()
	s.logger.Error("Document processing failed",
		"document_id", doc.ID.String(),
		"file_name", doc.FileName,
		"error", cause,
	)

	// The FAILED status and its review item must land together: a failed
	// document without an open item would never surface in the review queue
	var failedDoc *document.Document
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		failedDoc, txErr = s.documents.WithTx(tx).MarkFailed(ctx, doc.ID, message)
		if txErr != nil {
			return txErr
		}
		return s.reviews.WithTx(tx).Create(ctx, review.NewItem(failedDoc.ID, message))
	})
	if err != nil {
		return err
	}

	event := audit.NewEvent(audit.EventManualReviewRequired,
		fmt.Sprintf("Manual review required for %s", doc.FileName),
		map[string]any{"reason": message},
	).ForDocument(failedDoc.ID)
	if err := s.recorder.Record(ctx, event); err != nil {
		return err
	}

	event = audit.NewEvent(audit.EventError, message,
		map[string]any{"stage": "processPending"},
	).ForDocument(failedDoc.ID)
	return s.recorder.Record(ctx, event)
}

// Recompute re-evaluates all checks for the transaction, advances its state,
// refreshes its representative fields, and rewrites the rollup artifact
func (s *Service) Recompute(ctx context.Context, transactionID uuid.UUID) (*transaction.Transaction, error) {
	txn, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	docs, err := s.transactions.GetDocuments(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	computation := reconcile.ComputeChecks(docs, s.cfg.ConfidenceThreshold, s.cfg.AmountTolerancePct)
	state := reconcile.ComputeState(computation.Flags)

	update := transaction.StateUpdate{
		State:      state,
		PONumber:   txn.PONumber,
		VendorName: txn.VendorName,
		Country:    txn.Country,
		Currency:   txn.Currency,
	}
	if rep := representativeDocument(docs); rep != nil {
		update.PONumber = rep.PONumber
		update.VendorName = rep.VendorName
		update.Country = rep.Country
		update.Currency = rep.Currency
	}

	updated, err := s.transactions.UpdateState(ctx, transactionID, update)
	if err != nil {
		return nil, err
	}

	if err := s.transactions.UpsertChecks(ctx, transactionID, computation.Checks); err != nil {
		return nil, err
	}

	rollup := Rollup{
		Transaction: RollupTransaction{
			ID:               updated.ID,
			TransactionKey:   updated.TransactionKey,
			State:            updated.State,
			IssueSummary:     reconcile.SummarizeIssue(updated.State),
			LastReconciledAt: updated.LastReconciledAt,
			UpdatedAt:        updated.UpdatedAt,
			PONumber:         updated.PONumber,
			VendorName:       updated.VendorName,
			Country:          updated.Country,
			Currency:         updated.Currency,
		},
		Checks:    computation.Checks,
		Documents: make([]RollupDocument, 0, len(docs)),
	}
	for _, doc := range docs {
		rollup.Documents = append(rollup.Documents, RollupDocument{
			DocumentID:    doc.DocumentID,
			FileName:      doc.FileName,
			Role:          doc.Role,
			DocType:       doc.DocType,
			Status:        doc.Status,
			Confidence:    doc.Confidence,
			PONumber:      doc.PONumber,
			InvoiceNumber: doc.InvoiceNumber,
			GRNNumber:     doc.GRNNumber,
			UpdatedAt:     doc.UpdatedAt,
		})
	}
	if err := s.artifacts.WriteRollup(ctx, updated.TransactionKey, rollup); err != nil {
		return nil, err
	}

	event := audit.NewEvent(audit.EventStateUpdated,
		fmt.Sprintf("State updated to %s", updated.State),
		map[string]any{"state": string(updated.State)},
	).ForTransaction(transactionID)
	if err := s.recorder.Record(ctx, event); err != nil {
		return nil, err
	}

	event = audit.NewEvent(audit.EventReconciled,
		"Reconciliation checks recomputed",
		map[string]any{"checks": len(computation.Checks), "state": string(updated.State)},
	).ForTransaction(transactionID)
	if err := s.recorder.Record(ctx, event); err != nil {
		return nil, err
	}

	return updated, nil
}

// representativeDocument picks the document whose extracted fields stamp the
// transaction row: the PO wins, then the invoice, then the GRN
func representativeDocument(docs []*transaction.DocumentRef) *transaction.DocumentRef {
	for _, docType := range []document.Type{document.TypePurchaseOrder, document.TypeInvoice, document.TypeGoodsReceipt} {
		for _, doc := range docs {
			if doc.DocType == docType {
				return doc
			}
		}
	}
	if len(docs) > 0 {
		return docs[0]
	}
	return nil
}

var isoDateOnlyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseISODate parses a normalized YYYY-MM-DD date, returning nil for
// anything else
func ParseISODate(value string) *time.Time {
	if !isoDateOnlyPattern.MatchString(value) {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}
