// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the reconciliation pipeline.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/procurement-reconciler/internal/domain/document"
	"github.com/procurement-reconciler/internal/platform/persistence"
)

const documentColumns = `id, source_path, file_name, sha256, mime_type, size_bytes, status, doc_type,
		confidence, extracted, raw_text, error_message, po_number, invoice_number, grn_number,
		vendor_name, vendor_id, country, currency, doc_date, due_date, total_amount, tax_amount,
		version, first_seen_at, processed_at, updated_at`

// DocumentRepository implements the document.Repository interface for PostgreSQL
type DocumentRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewDocumentRepository creates a new PostgreSQL document repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewDocumentRepository(logger *slog.Logger, db *persistence.PostgresDB) document.Repository {
	return &DocumentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so multiple repository calls
// share one atomic unit of work
func (r *DocumentRepository) WithTx(tx pgx.Tx) document.Repository {
	return &DocumentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanDocument(row pgx.Row) (*document.Document, error) {
	var doc document.Document
	err := row.Scan(
		&doc.ID,
		&doc.SourcePath,
		&doc.FileName,
		&doc.SHA256,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.Status,
		&doc.DocType,
		&doc.Confidence,
		&doc.Extracted,
		&doc.RawText,
		&doc.ErrorMessage,
		&doc.PONumber,
		&doc.InvoiceNumber,
		&doc.GRNNumber,
		&doc.VendorName,
		&doc.VendorID,
		&doc.Country,
		&doc.Currency,
		&doc.DocDate,
		&doc.DueDate,
		&doc.TotalAmount,
		&doc.TaxAmount,
		&doc.Version,
		&doc.FirstSeenAt,
		&doc.ProcessedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create stores a newly discovered document. A document with the same content
// hash triggers ErrDuplicateDocument via the sha256 unique constraint.
func (r *DocumentRepository) Create(ctx context.Context, doc *document.Document) error {
	query := `
		INSERT INTO documents (id, source_path, file_name, sha256, mime_type, size_bytes, status,
			doc_type, version, first_seen_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		doc.ID,
		doc.SourcePath,
		doc.FileName,
		doc.SHA256,
		doc.MimeType,
		doc.SizeBytes,
		doc.Status,
		doc.DocType,
		doc.Version,
		doc.FirstSeenAt,
		doc.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "documents_sha256_key") {
			return document.ErrDuplicateDocument{SHA256: doc.SHA256}
		}
		r.logger.Error("Failed to create document", "file_name", doc.FileName, "error", err)
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by its ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrDocumentNotFound{ID: id}
		}
		r.logger.Error("Failed to get document", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// GetBySHA256 retrieves a document by content hash, returning nil, nil when
// the hash is unknown
func (r *DocumentRepository) GetBySHA256(ctx context.Context, sha256 string) (*document.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE sha256 = $1`

	doc, err := scanDocument(r.querier.QueryRow(ctx, query, sha256))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get document by hash", "error", err)
		return nil, fmt.Errorf("failed to get document by hash: %w", err)
	}

	return doc, nil
}

// TouchMetadata refreshes the source location fields when a known document is
// re-discovered under a new path or name
func (r *DocumentRepository) TouchMetadata(ctx context.Context, id uuid.UUID, meta document.SourceMetadata) error {
	query := `
		UPDATE documents
		SET source_path = $2, file_name = $3, mime_type = $4, size_bytes = $5, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.querier.Exec(ctx, query, id, meta.SourcePath, meta.FileName, meta.MimeType, meta.SizeBytes)
	if err != nil {
		r.logger.Error("Failed to refresh document metadata", "id", id.String(), "error", err)
		return fmt.Errorf("failed to refresh document metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return document.ErrDocumentNotFound{ID: id}
	}

	return nil
}

// ListPending returns documents awaiting processing, oldest discovery first
func (r *DocumentRepository) ListPending(ctx context.Context, limit int, includeFailed bool) ([]*document.Document, error) {
	statuses := []string{string(document.StatusNew)}
	if includeFailed {
		statuses = append(statuses, string(document.StatusFailed))
	}

	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE status = ANY($1)
		ORDER BY first_seen_at ASC
		LIMIT $2`

	rows, err := r.querier.Query(ctx, query, statuses, limit)
	if err != nil {
		r.logger.Error("Failed to list pending documents", "error", err)
		return nil, fmt.Errorf("failed to list pending documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// Claim admits a document into a processing run with an optimistic version
// check. A false return means another run claimed the document first.
func (r *DocumentRepository) Claim(ctx context.Context, id uuid.UUID, version int) (bool, error) {
	query := `
		UPDATE documents
		SET version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND status = ANY($3)
	`

	claimable := []string{string(document.StatusNew), string(document.StatusFailed)}
	tag, err := r.querier.Exec(ctx, query, id, version, claimable)
	if err != nil {
		r.logger.Error("Failed to claim document", "id", id.String(), "error", err)
		return false, fmt.Errorf("failed to claim document: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkProcessed persists a successful extraction outcome and returns the
// updated row
func (r *DocumentRepository) MarkProcessed(ctx context.Context, id uuid.UUID, fields document.ProcessedFields) (*document.Document, error) {
	query := `
		UPDATE documents
		SET status = $2, raw_text = $3, doc_type = $4, confidence = $5, extracted = $6,
			po_number = $7, invoice_number = $8, grn_number = $9, vendor_name = $10, vendor_id = $11,
			country = $12, currency = $13, doc_date = $14, due_date = $15, total_amount = $16,
			tax_amount = $17, error_message = '', processed_at = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + documentColumns

	doc, err := scanDocument(r.querier.QueryRow(ctx, query,
		id,
		document.StatusProcessed,
		fields.RawText,
		fields.DocType,
		fields.Confidence,
		fields.Extracted,
		fields.PONumber,
		fields.InvoiceNumber,
		fields.GRNNumber,
		fields.VendorName,
		fields.VendorID,
		fields.Country,
		fields.Currency,
		fields.DocDate,
		fields.DueDate,
		fields.TotalAmount,
		fields.TaxAmount,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrDocumentNotFound{ID: id}
		}
		r.logger.Error("Failed to mark document processed", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to mark document processed: %w", err)
	}

	return doc, nil
}

// MarkFailed records an extraction failure without losing discovery metadata
func (r *DocumentRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) (*document.Document, error) {
	query := `
		UPDATE documents
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + documentColumns

	doc, err := scanDocument(r.querier.QueryRow(ctx, query, id, document.StatusFailed, message))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrDocumentNotFound{ID: id}
		}
		r.logger.Error("Failed to mark document failed", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to mark document failed: %w", err)
	}

	return doc, nil
}

// FindProcessedPO returns the most recently updated processed purchase order
// carrying the PO number, or nil, nil when none exists
func (r *DocumentRepository) FindProcessedPO(ctx context.Context, poNumber string) (*document.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE status = $1 AND doc_type = $2 AND po_number = $3
		ORDER BY updated_at DESC
		LIMIT 1`

	doc, err := scanDocument(r.querier.QueryRow(ctx, query, document.StatusProcessed, document.TypePurchaseOrder, poNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find processed purchase order", "po_number", poNumber, "error", err)
		return nil, fmt.Errorf("failed to find processed purchase order: %w", err)
	}

	return doc, nil
}

// CountDistinctHashes returns the number of unique document contents known
func (r *DocumentRepository) CountDistinctHashes(ctx context.Context) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(DISTINCT sha256) FROM documents`).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count distinct document hashes", "error", err)
		return 0, fmt.Errorf("failed to count distinct document hashes: %w", err)
	}
	return count, nil
}

// Count returns the total number of documents
func (r *DocumentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count documents", "error", err)
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// CountByStatus returns the number of documents in the given status
func (r *DocumentRepository) CountByStatus(ctx context.Context, status document.Status) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE status = $1`, status).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count documents by status", "status", string(status), "error", err)
		return 0, fmt.Errorf("failed to count documents by status: %w", err)
	}
	return count, nil
}

// List returns documents matching the filters, most recently updated first
func (r *DocumentRepository) List(ctx context.Context, filters document.ListFilters, limit int) ([]*document.Document, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}

	if filters.Status != "" {
		args = append(args, filters.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.DocType != "" {
		args = append(args, filters.DocType)
		conditions = append(conditions, fmt.Sprintf("doc_type = $%d", len(args)))
	}
	if filters.Query != "" {
		args = append(args, "%"+filters.Query+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(file_name ILIKE $%d OR po_number ILIKE $%d OR invoice_number ILIKE $%d OR vendor_name ILIKE $%d)", n, n, n, n))
	}
	if filters.ConfidenceBelow != nil {
		args = append(args, *filters.ConfidenceBelow)
		conditions = append(conditions, fmt.Sprintf("confidence IS NOT NULL AND confidence < $%d", len(args)))
	}

	args = append(args, limit)
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY updated_at DESC
		LIMIT $` + fmt.Sprint(len(args))

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list documents", "error", err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

func collectDocuments(rows pgx.Rows) ([]*document.Document, error) {
	var docs []*document.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document rows: %w", err)
	}
	return docs, nil
}
