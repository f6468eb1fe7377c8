package review

import (
	"time"

	"github.com/google/uuid"
)

// Status defines manual review item states. Resolution is one-way:
// OPEN items become RESOLVED and never re-open.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

// Item is a queued human-review task opened when a document fails processing
type Item struct {
	ID         uuid.UUID  `json:"id"`
	DocumentID uuid.UUID  `json:"document_id"`
	Reason     string     `json:"reason"`
	Status     Status     `json:"status"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// NewItem opens a review item for a failed document
func NewItem(documentID uuid.UUID, reason string) *Item {
	return &Item{
		ID:         uuid.New(),
		DocumentID: documentID,
		Reason:     reason,
		Status:     StatusOpen,
		CreatedAt:  time.Now().UTC(),
	}
}
