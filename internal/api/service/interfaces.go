package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/procurement-reconciler/internal/domain/audit"
	"github.com/procurement-reconciler/internal/domain/document"
	"github.com/procurement-reconciler/internal/domain/transaction"
	"github.com/procurement-reconciler/internal/pipeline"
)

// ReviewStatus summarizes a transaction's manual review position for listings
type ReviewStatus string

const (
	ReviewStatusNone    ReviewStatus = "NONE"    // No review items were ever opened
	ReviewStatusPending ReviewStatus = "PENDING" // At least one item is still open
	ReviewStatusDone    ReviewStatus = "DONE"    // All items resolved
)

// TransactionListItem is one row of the transaction listing with role counts
// and the review rollup attached
type TransactionListItem struct {
	*transaction.Transaction
	Counts        transaction.RoleCounts `json:"counts"`
	ReviewStatus  ReviewStatus           `json:"reviewStatus"`
	ReviewComment string                 `json:"reviewComment,omitempty"`
}

// TransactionDetail aggregates everything the transaction detail view needs
type TransactionDetail struct {
	Transaction *transaction.Transaction   `json:"transaction"`
	Documents   []*transaction.DocumentRef `json:"docs"`
	Checks      []*transaction.CheckResult `json:"checks"`
	Events      []*audit.Event             `json:"events"`
}

// ReportKPIs are the headline counters of the reports summary
type ReportKPIs struct {
	TotalDocs         int64 `json:"totalDocs"`
	ProcessedDocs     int64 `json:"processedDocs"`
	TotalTransactions int64 `json:"totalTransactions"`
	Exceptions        int64 `json:"exceptions"`
}

// ReportSummary is the reports endpoint payload
type ReportSummary struct {
	KPIs           ReportKPIs                 `json:"kpis"`
	StateBreakdown []transaction.StateCount   `json:"stateBreakdown"`
	ExceptionQueue []*transaction.Transaction `json:"exceptionQueue"`
}

// IngestService drives discovery and processing runs
type IngestService interface {
	// Scan walks the raw directory and registers unseen documents
	Scan(ctx context.Context) (pipeline.ScanSummary, error)

	// Process extracts and reconciles pending documents
	Process(ctx context.Context, opts pipeline.ProcessOptions) (pipeline.ProcessSummary, error)

	// Rerun forces one document back through extraction
	Rerun(ctx context.Context, documentID uuid.UUID) (pipeline.ProcessSummary, error)
}

// TransactionService serves the transaction read side and review actions
type TransactionService interface {
	// List returns transactions matching the filters with per-role document
	// counts and the manual review rollup
	List(ctx context.Context, filters transaction.ListFilters) ([]*TransactionListItem, error)

	// GetDetail returns the transaction with its documents, checks, and audit
	// trail. Returns ErrTransactionNotFound when the transaction doesn't exist.
	GetDetail(ctx context.Context, id uuid.UUID) (*TransactionDetail, error)

	// RerunDocument re-extracts one of the transaction's documents and records
	// the request on the audit trail
	RerunDocument(ctx context.Context, transactionID, documentID uuid.UUID) (pipeline.ProcessSummary, error)

	// ResolveReview resolves open review items, either for a single document or
	// for all of the transaction's documents, and returns how many were resolved
	ResolveReview(ctx context.Context, transactionID uuid.UUID, documentID *uuid.UUID, notes string) (int64, error)

	// ListArtifacts returns the blob store keys of the transaction's stored
	// artifacts (raw document copies, extracted records, the rollup)
	ListArtifacts(ctx context.Context, transactionID uuid.UUID) ([]string, error)
}

// ArtifactLister lists the artifacts stored under a transaction's prefix.
// Implemented by pipeline.ArtifactStore.
type ArtifactLister interface {
	ListTransactionArtifacts(ctx context.Context, transactionKey string) ([]string, error)
}

// DocumentService serves the document read side
type DocumentService interface {
	List(ctx context.Context, filters document.ListFilters) ([]*document.Document, error)
}

// ReportService builds the reconciliation KPI summary
type ReportService interface {
	Summary(ctx context.Context) (*ReportSummary, error)
}
