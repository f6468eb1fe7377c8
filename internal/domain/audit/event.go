package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the fixed audit event taxonomy
type EventType string

const (
	EventDiscovered           EventType = "DISCOVERED"
	EventIngested             EventType = "INGESTED"
	EventExtracted            EventType = "EXTRACTED"
	EventRouted               EventType = "ROUTED"
	EventStateUpdated         EventType = "STATE_UPDATED"
	EventReconciled           EventType = "RECONCILED"
	EventManualReviewRequired EventType = "MANUAL_REVIEW_REQUIRED"
	EventError                EventType = "ERROR"
)

// Event is one append-only audit record, linked optionally to a transaction
// and/or a document. Events are never mutated or deleted.
type Event struct {
	ID            uuid.UUID      `json:"id" bson:"_id"`
	TransactionID *uuid.UUID     `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	DocumentID    *uuid.UUID     `json:"document_id,omitempty" bson:"document_id,omitempty"`
	EventType     EventType      `json:"event_type" bson:"event_type"`
	Message       string         `json:"message" bson:"message"`
	Meta          map[string]any `json:"meta" bson:"meta"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
}

// NewEvent builds an event with a fresh identity and timestamp
func NewEvent(eventType EventType, message string, meta map[string]any) *Event {
	if meta == nil {
		meta = map[string]any{}
	}
	return &Event{
		ID:        uuid.New(),
		EventType: eventType,
		Message:   message,
		Meta:      meta,
		CreatedAt: time.Now().UTC(),
	}
}

// ForTransaction links the event to a transaction
func (e *Event) ForTransaction(transactionID uuid.UUID) *Event {
	e.TransactionID = &transactionID
	return e
}

// ForDocument links the event to a document
func (e *Event) ForDocument(documentID uuid.UUID) *Event {
	e.DocumentID = &documentID
	return e
}
