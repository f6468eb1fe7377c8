package pipeline

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/procurement-reconciler/internal/domain/document"
	"github.com/procurement-reconciler/internal/extraction"
)

// TxRunner executes a function inside a database transaction. Satisfied by
// persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Scanner lists the candidate raw files eligible for discovery
type Scanner interface {
	Scan() ([]document.ScannedFile, error)
}

// TextReader reads the extractable text of a raw file
type TextReader interface {
	ReadText(sourcePath string) (string, error)
}

// Extractor turns document text into a structured record
type Extractor interface {
	Extract(ctx context.Context, input extraction.Input) (*document.ExtractedRecord, error)
}
