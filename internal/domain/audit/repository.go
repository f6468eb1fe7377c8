package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages append-only audit event persistence
type Repository interface {
	Append(ctx context.Context, event *Event) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID, limit int) ([]*Event, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID, limit int) ([]*Event, error)
}

// Publisher broadcasts recorded events to an external stream.
// Implementations must be safe to skip; publishing is best-effort.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}
