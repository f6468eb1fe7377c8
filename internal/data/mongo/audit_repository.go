// Package mongo provides the MongoDB implementation of the audit event store.
// Audit events are append-only; nothing here updates or deletes.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/procurement-reconciler/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit event collection in MongoDB
	AuditCollectionName = "audit_events"
)

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit event repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores one audit event
func (r *AuditRepository) Append(ctx context.Context, event *audit.Event) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.InsertOne(ctx, event)
	if err != nil {
		r.logger.Error("Failed to append audit event",
			"event_type", string(event.EventType),
			"error", err)
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	return nil
}

// ListByTransaction retrieves the transaction's audit trail, newest first
func (r *AuditRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID, limit int) ([]*audit.Event, error) {
	return r.list(ctx, bson.M{"transaction_id": transactionID}, limit)
}

// ListByDocument retrieves the document's audit trail, newest first
func (r *AuditRepository) ListByDocument(ctx context.Context, documentID uuid.UUID, limit int) ([]*audit.Event, error) {
	return r.list(ctx, bson.M{"document_id": documentID}, limit)
}

func (r *AuditRepository) list(ctx context.Context, filter bson.M, limit int) ([]*audit.Event, error) {
	collection := r.db.Collection(AuditCollectionName)

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list audit events", "error", err)
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*audit.Event
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode audit events", "error", err)
		return nil, fmt.Errorf("failed to decode audit events: %w", err)
	}

	return events, nil
}
