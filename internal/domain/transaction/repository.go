package transaction

import (
	"context"

	"github.com/google/uuid"
)

// UpsertFields carries the representative fields offered by the routing
// document. Blank values never overwrite populated ones.
type UpsertFields struct {
	TransactionKey string
	PONumber       string
	VendorName     string
	Country        string
	Currency       string
}

// StateUpdate carries the recompute result persisted on the transaction row
type StateUpdate struct {
	State      State
	PONumber   string
	VendorName string
	Country    string
	Currency   string
}

// ListFilters narrows transaction listings for the read-side API
type ListFilters struct {
	State   State
	Vendor  string
	Country string
	Currency string
	Query   string
}

// Repository defines transaction persistence operations, including the
// document links and per-type check results owned by a transaction
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByKey(ctx context.Context, transactionKey string) (*Transaction, error)

	// Upsert creates the transaction on first routing or refreshes its
	// representative fields; blank incoming values never erase stored ones
	Upsert(ctx context.Context, fields UpsertFields) (*Transaction, error)

	// AttachDocument links a document to the transaction with a fixed role.
	// Attaching an already-attached document is a no-op.
	AttachDocument(ctx context.Context, transactionID, documentID uuid.UUID, role DocumentRole) error

	// GetDocuments returns the transaction's attached documents with their
	// extraction fields and open-review flag, most recently updated first
	GetDocuments(ctx context.Context, transactionID uuid.UUID) ([]*DocumentRef, error)

	// UpsertChecks overwrites the stored result for each (transaction, checkType) pair
	UpsertChecks(ctx context.Context, transactionID uuid.UUID, checks []CheckResult) error
	GetChecks(ctx context.Context, transactionID uuid.UUID) ([]*CheckResult, error)

	UpdateState(ctx context.Context, transactionID uuid.UUID, update StateUpdate) (*Transaction, error)

	List(ctx context.Context, filters ListFilters, limit int) ([]*Transaction, error)
	RoleCounts(ctx context.Context, transactionIDs []uuid.UUID) (map[uuid.UUID]RoleCounts, error)

	Count(ctx context.Context) (int64, error)
	CountExceptions(ctx context.Context) (int64, error)
	StateBreakdown(ctx context.Context) ([]StateCount, error)
	ListExceptions(ctx context.Context, limit int) ([]*Transaction, error)
}

// ErrTransactionNotFound indicates missing transaction
type ErrTransactionNotFound struct {
	ID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
