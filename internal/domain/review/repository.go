package review

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionReviewStatus rolls up a transaction's manual review items
type TransactionReviewStatus struct {
	Open     int64  `json:"open"`
	Resolved int64  `json:"resolved"`
	Notes    string `json:"notes,omitempty"` // Latest resolution notes
}

// Repository manages manual review item persistence
type Repository interface {
	// WithTx wraps the repository with a transaction so review items can be
	// written atomically with document updates
	WithTx(tx pgx.Tx) Repository

	Create(ctx context.Context, item *Item) error
	ListOpenByDocument(ctx context.Context, documentID uuid.UUID) ([]*Item, error)

	// StatusByTransactions returns the review rollup for each transaction that
	// has review items; transactions without items are absent from the map
	StatusByTransactions(ctx context.Context, transactionIDs []uuid.UUID) (map[uuid.UUID]TransactionReviewStatus, error)

	// ResolveByDocument resolves all OPEN items for the document and returns
	// how many were resolved
	ResolveByDocument(ctx context.Context, documentID uuid.UUID, notes string) (int64, error)

	// ResolveByTransaction resolves all OPEN items attached to the
	// transaction's documents and returns how many were resolved
	ResolveByTransaction(ctx context.Context, transactionID uuid.UUID, notes string) (int64, error)
}
