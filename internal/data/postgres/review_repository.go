package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/procurement-reconciler/internal/domain/review"
	"github.com/procurement-reconciler/internal/platform/persistence"
)

// ReviewRepository implements the review.Repository interface for PostgreSQL
type ReviewRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewReviewRepository creates a new PostgreSQL manual review repository
func NewReviewRepository(logger *slog.Logger, db *persistence.PostgresDB) review.Repository {
	return &ReviewRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so review items can be
// written atomically with document updates
func (r *ReviewRepository) WithTx(tx pgx.Tx) review.Repository {
	return &ReviewRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new manual review item
func (r *ReviewRepository) Create(ctx context.Context, item *review.Item) error {
	query := `
		INSERT INTO manual_review_items (id, document_id, reason, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		item.ID,
		item.DocumentID,
		item.Reason,
		item.Status,
		item.Notes,
		item.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create manual review item", "document_id", item.DocumentID.String(), "error", err)
		return fmt.Errorf("failed to create manual review item: %w", err)
	}

	return nil
}

// ListOpenByDocument returns the document's unresolved review items, oldest first
func (r *ReviewRepository) ListOpenByDocument(ctx context.Context, documentID uuid.UUID) ([]*review.Item, error) {
	query := `
		SELECT id, document_id, reason, status, notes, created_at, resolved_at
		FROM manual_review_items
		WHERE document_id = $1 AND status = $2
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, documentID, review.StatusOpen)
	if err != nil {
		r.logger.Error("Failed to list open review items", "document_id", documentID.String(), "error", err)
		return nil, fmt.Errorf("failed to list open review items: %w", err)
	}
	defer rows.Close()

	var items []*review.Item
	for rows.Next() {
		var item review.Item
		err := rows.Scan(&item.ID, &item.DocumentID, &item.Reason, &item.Status, &item.Notes, &item.CreatedAt, &item.ResolvedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review item row: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review item rows: %w", err)
	}

	return items, nil
}

// StatusByTransactions rolls up review item counts and the latest resolution
// notes for each transaction
func (r *ReviewRepository) StatusByTransactions(ctx context.Context, transactionIDs []uuid.UUID) (map[uuid.UUID]review.TransactionReviewStatus, error) {
	statuses := make(map[uuid.UUID]review.TransactionReviewStatus)
	if len(transactionIDs) == 0 {
		return statuses, nil
	}

	query := `
		SELECT td.transaction_id,
			COUNT(*) FILTER (WHERE m.status = 'OPEN') AS open_count,
			COUNT(*) FILTER (WHERE m.status = 'RESOLVED') AS resolved_count
		FROM manual_review_items m
		JOIN transaction_documents td ON td.document_id = m.document_id
		WHERE td.transaction_id = ANY($1)
		GROUP BY td.transaction_id
	`

	rows, err := r.querier.Query(ctx, query, transactionIDs)
	if err != nil {
		r.logger.Error("Failed to roll up review statuses", "error", err)
		return nil, fmt.Errorf("failed to roll up review statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var transactionID uuid.UUID
		var status review.TransactionReviewStatus
		if err := rows.Scan(&transactionID, &status.Open, &status.Resolved); err != nil {
			return nil, fmt.Errorf("failed to scan review status row: %w", err)
		}
		statuses[transactionID] = status
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review status rows: %w", err)
	}

	notesQuery := `
		SELECT DISTINCT ON (td.transaction_id) td.transaction_id, m.notes
		FROM manual_review_items m
		JOIN transaction_documents td ON td.document_id = m.document_id
		WHERE td.transaction_id = ANY($1) AND m.status = 'RESOLVED' AND m.notes <> ''
		ORDER BY td.transaction_id, m.resolved_at DESC
	`

	noteRows, err := r.querier.Query(ctx, notesQuery, transactionIDs)
	if err != nil {
		r.logger.Error("Failed to load review resolution notes", "error", err)
		return nil, fmt.Errorf("failed to load review resolution notes: %w", err)
	}
	defer noteRows.Close()

	for noteRows.Next() {
		var transactionID uuid.UUID
		var notes string
		if err := noteRows.Scan(&transactionID, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan review notes row: %w", err)
		}
		status := statuses[transactionID]
		status.Notes = notes
		statuses[transactionID] = status
	}
	if err := noteRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review notes rows: %w", err)
	}

	return statuses, nil
}

// ResolveByDocument resolves every open item for the document
func (r *ReviewRepository) ResolveByDocument(ctx context.Context, documentID uuid.UUID, notes string) (int64, error) {
	query := `
		UPDATE manual_review_items
		SET status = $2, notes = $3, resolved_at = NOW()
		WHERE document_id = $1 AND status = $4
	`

	tag, err := r.querier.Exec(ctx, query, documentID, review.StatusResolved, notes, review.StatusOpen)
	if err != nil {
		r.logger.Error("Failed to resolve review items by document", "document_id", documentID.String(), "error", err)
		return 0, fmt.Errorf("failed to resolve review items by document: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ResolveByTransaction resolves every open item attached to the transaction's documents
func (r *ReviewRepository) ResolveByTransaction(ctx context.Context, transactionID uuid.UUID, notes string) (int64, error) {
	query := `
		UPDATE manual_review_items
		SET status = $2, notes = $3, resolved_at = NOW()
		WHERE status = $4 AND document_id IN (
			SELECT document_id FROM transaction_documents WHERE transaction_id = $1
		)
	`

	tag, err := r.querier.Exec(ctx, query, transactionID, review.StatusResolved, notes, review.StatusOpen)
	if err != nil {
		r.logger.Error("Failed to resolve review items by transaction", "transaction_id", transactionID.String(), "error", err)
		return 0, fmt.Errorf("failed to resolve review items by transaction: %w", err)
	}

	return tag.RowsAffected(), nil
}
