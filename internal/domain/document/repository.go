package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SourceMetadata holds the location fields refreshed on idempotent re-discovery
type SourceMetadata struct {
	SourcePath string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// ProcessedFields carries everything persisted when a document finishes extraction
type ProcessedFields struct {
	RawText       string
	DocType       Type
	Confidence    float64
	Extracted     *ExtractedRecord
	PONumber      string
	InvoiceNumber string
	GRNNumber     string
	VendorName    string
	VendorID      string
	Country       string
	Currency      string
	DocDate       *time.Time
	DueDate       *time.Time
	TotalAmount   *float64
	TaxAmount     *float64
}

// ListFilters narrows document listings for the read-side API
type ListFilters struct {
	Status          Status
	DocType         Type
	Query           string
	ConfidenceBelow *float64
}

// Repository defines document persistence operations
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// GetBySHA256 returns nil, nil when no document carries the hash
	GetBySHA256(ctx context.Context, sha256 string) (*Document, error)

	// TouchMetadata refreshes location metadata without altering status
	TouchMetadata(ctx context.Context, id uuid.UUID, meta SourceMetadata) error

	// ListPending returns NEW (optionally NEW+FAILED) documents ordered by first-seen time
	ListPending(ctx context.Context, limit int, includeFailed bool) ([]*Document, error)

	// Claim performs the optimistic version-guarded claim that admits a document
	// into a processing run. It returns false when another run already claimed it.
	Claim(ctx context.Context, id uuid.UUID, version int) (bool, error)

	MarkProcessed(ctx context.Context, id uuid.UUID, fields ProcessedFields) (*Document, error)
	MarkFailed(ctx context.Context, id uuid.UUID, message string) (*Document, error)

	// FindProcessedPO returns the most recently updated PROCESSED purchase order
	// carrying the PO number, or nil, nil when none exists
	FindProcessedPO(ctx context.Context, poNumber string) (*Document, error)

	CountDistinctHashes(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
	List(ctx context.Context, filters ListFilters, limit int) ([]*Document, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrDocumentNotFound indicates missing document
type ErrDocumentNotFound struct {
	ID uuid.UUID
}

func (e ErrDocumentNotFound) Error() string {
	return "document not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrDocumentNotFound
func (e ErrDocumentNotFound) Is(target error) bool {
	t, ok := target.(ErrDocumentNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrDuplicateDocument indicates a content-hash uniqueness violation
type ErrDuplicateDocument struct {
	SHA256 string
}

func (e ErrDuplicateDocument) Error() string {
	return "document with content hash already exists: " + e.SHA256
}
