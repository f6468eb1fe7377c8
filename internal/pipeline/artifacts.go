package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/procurement-reconciler/internal/domain/document"
	"github.com/procurement-reconciler/internal/domain/transaction"
	"github.com/procurement-reconciler/internal/platform/blob"
)

var unsafeKeyPattern = regexp.MustCompile(`[^A-Za-z0-9_-]`)

func sanitizeKey(input string) string {
	return unsafeKeyPattern.ReplaceAllString(input, "_")
}

func transactionStoragePrefix(transactionKey string) string {
	return path.Join("transactions", sanitizeKey(transactionKey))
}

// RollupTransaction is the transaction section of the rollup artifact
type RollupTransaction struct {
	ID               uuid.UUID  `json:"id"`
	TransactionKey   string     `json:"transactionKey"`
	State            transaction.State `json:"state"`
	IssueSummary     string     `json:"issueSummary"`
	LastReconciledAt *time.Time `json:"lastReconciledAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	PONumber         string     `json:"poNumber"`
	VendorName       string     `json:"vendorName"`
	Country          string     `json:"country"`
	Currency         string     `json:"currency"`
}

// RollupDocument is one attached document as surfaced in the rollup artifact
type RollupDocument struct {
	DocumentID    uuid.UUID                `json:"documentId"`
	FileName      string                   `json:"fileName"`
	Role          transaction.DocumentRole `json:"role"`
	DocType       document.Type            `json:"docType"`
	Status        document.Status          `json:"status"`
	Confidence    *float64                 `json:"confidence"`
	PONumber      string                   `json:"poNumber"`
	InvoiceNumber string                   `json:"invoiceNumber"`
	GRNNumber     string                   `json:"grnNumber"`
	UpdatedAt     time.Time                `json:"updatedAt"`
}

// Rollup is the per-transaction JSON snapshot written after every recompute
type Rollup struct {
	Transaction RollupTransaction         `json:"transaction"`
	Checks      []transaction.CheckResult `json:"checks"`
	Documents   []RollupDocument          `json:"documents"`
}

// ArtifactStore mirrors processed documents and transaction snapshots into
// the blob store, laid out per transaction key
type ArtifactStore struct {
	store  blob.Store
	logger *slog.Logger
}

func NewArtifactStore(store blob.Store, logger *slog.Logger) *ArtifactStore {
	return &ArtifactStore{
		store:  store,
		logger: logger,
	}
}

// SyncDocument uploads the raw document bytes and its extracted record under
// the transaction's storage prefix
func (a *ArtifactStore) SyncDocument(ctx context.Context, transactionKey, sourcePath, fileName string, documentID uuid.UUID, extracted *document.ExtractedRecord) error {
	prefix := transactionStoragePrefix(transactionKey)

	rawBytes, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read source file %s: %w", sourcePath, err)
	}

	if err := a.store.Upload(ctx, path.Join(prefix, "docs", fileName), rawBytes, mimeTypeForFile(fileName)); err != nil {
		return fmt.Errorf("failed to upload raw document artifact: %w", err)
	}

	extractedJSON, err := json.MarshalIndent(extracted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal extracted record: %w", err)
	}

	if err := a.store.Upload(ctx, path.Join(prefix, "extracted", documentID.String()+".json"), extractedJSON, "application/json"); err != nil {
		return fmt.Errorf("failed to upload extracted record artifact: %w", err)
	}

	return nil
}

// WriteRollup uploads the transaction snapshot as transaction.json under the
// transaction's storage prefix
func (a *ArtifactStore) WriteRollup(ctx context.Context, transactionKey string, rollup Rollup) error {
	payload, err := json.MarshalIndent(rollup, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transaction rollup: %w", err)
	}

	key := path.Join(transactionStoragePrefix(transactionKey), "transaction.json")
	if err := a.store.Upload(ctx, key, payload, "application/json"); err != nil {
		return fmt.Errorf("failed to upload transaction rollup: %w", err)
	}

	return nil
}

// ListTransactionArtifacts returns the keys of every artifact stored under the
// transaction's prefix (raw document copies, extracted records, the rollup)
func (a *ArtifactStore) ListTransactionArtifacts(ctx context.Context, transactionKey string) ([]string, error) {
	keys, err := a.store.ListByPrefix(ctx, transactionStoragePrefix(transactionKey))
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction artifacts: %w", err)
	}
	return keys, nil
}

func mimeTypeForFile(fileName string) string {
	switch path.Ext(fileName) {
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
