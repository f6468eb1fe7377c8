package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/procurement-reconciler/internal/domain/audit"
	"github.com/procurement-reconciler/internal/domain/review"
	"github.com/procurement-reconciler/internal/domain/transaction"
	"github.com/procurement-reconciler/internal/pipeline"
)

const (
	transactionListLimit = 500
	auditEventListLimit  = 200
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	transactionRepo transaction.Repository
	reviewRepo      review.Repository
	auditRepo       audit.Repository
	recorder        *audit.Recorder
	ingest          IngestService
	artifacts       ArtifactLister
	logger          *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(
	logger *slog.Logger,
	transactionRepo transaction.Repository,
	reviewRepo review.Repository,
	auditRepo audit.Repository,
	recorder *audit.Recorder,
	ingest IngestService,
	artifacts ArtifactLister,
) TransactionService {
	return &TransactionServiceImpl{
		transactionRepo: transactionRepo,
		reviewRepo:      reviewRepo,
		auditRepo:       auditRepo,
		recorder:        recorder,
		ingest:          ingest,
		artifacts:       artifacts,
		logger:          logger,
	}
}

// List returns matching transactions enriched with role counts and the manual
// review rollup
func (s *TransactionServiceImpl) List(ctx context.Context, filters transaction.ListFilters) ([]*TransactionListItem, error) {
	rows, err := s.transactionRepo.List(ctx, filters, transactionListLimit)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*TransactionListItem{}, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	counts, err := s.transactionRepo.RoleCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviewRepo.StatusByTransactions(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]*TransactionListItem, 0, len(rows))
	for _, row := range rows {
		item := &TransactionListItem{
			Transaction:  row,
			Counts:       counts[row.ID],
			ReviewStatus: ReviewStatusNone,
		}
		if rollup, ok := reviews[row.ID]; ok {
			if rollup.Open > 0 {
				item.ReviewStatus = ReviewStatusPending
			} else {
				item.ReviewStatus = ReviewStatusDone
				item.ReviewComment = rollup.Notes
			}
		}
		items = append(items, item)
	}

	return items, nil
}

// GetDetail loads the transaction and fans out for its documents, checks, and
// audit trail concurrently
func (s *TransactionServiceImpl) GetDetail(ctx context.Context, id uuid.UUID) (*TransactionDetail, error) {
	txn, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &TransactionDetail{Transaction: txn}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := s.transactionRepo.GetDocuments(gctx, id)
		if err != nil {
			return err
		}
		detail.Documents = docs
		return nil
	})
	g.Go(func() error {
		checks, err := s.transactionRepo.GetChecks(gctx, id)
		if err != nil {
			return err
		}
		detail.Checks = checks
		return nil
	})
	g.Go(func() error {
		events, err := s.auditRepo.ListByTransaction(gctx, id, auditEventListLimit)
		if err != nil {
			return err
		}
		detail.Events = events
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to load transaction detail", "transaction_id", id.String(), "error", err)
		return nil, err
	}

	return detail, nil
}

// RerunDocument re-extracts one document and records the request
func (s *TransactionServiceImpl) RerunDocument(ctx context.Context, transactionID, documentID uuid.UUID) (pipeline.ProcessSummary, error) {
	if _, err := s.transactionRepo.GetByID(ctx, transactionID); err != nil {
		return pipeline.ProcessSummary{}, err
	}

	summary, err := s.ingest.Rerun(ctx, documentID)
	if err != nil {
		return summary, err
	}

	event := audit.NewEvent(audit.EventIngested,
		"Re-run extraction requested from transaction detail",
		map[string]any{"summary": summary},
	).ForTransaction(transactionID).ForDocument(documentID)
	if err := s.recorder.Record(ctx, event); err != nil {
		return summary, err
	}

	return summary, nil
}

// ListArtifacts returns the keys of everything stored under the transaction's
// artifact prefix
func (s *TransactionServiceImpl) ListArtifacts(ctx context.Context, transactionID uuid.UUID) ([]string, error) {
	txn, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	keys, err := s.artifacts.ListTransactionArtifacts(ctx, txn.TransactionKey)
	if err != nil {
		s.logger.Error("Failed to list transaction artifacts", "transaction_id", transactionID.String(), "error", err)
		return nil, err
	}

	return keys, nil
}

// ResolveReview resolves open manual review items for one document or for the
// whole transaction and records the resolution
func (s *TransactionServiceImpl) ResolveReview(ctx context.Context, transactionID uuid.UUID, documentID *uuid.UUID, notes string) (int64, error) {
	if _, err := s.transactionRepo.GetByID(ctx, transactionID); err != nil {
		return 0, err
	}

	var resolved int64
	var err error
	if documentID != nil {
		resolved, err = s.reviewRepo.ResolveByDocument(ctx, *documentID, notes)
	} else {
		resolved, err = s.reviewRepo.ResolveByTransaction(ctx, transactionID, notes)
	}
	if err != nil {
		return 0, err
	}

	event := audit.NewEvent(audit.EventStateUpdated,
		"Manual review resolved",
		map[string]any{"resolvedCount": resolved, "notes": notes},
	).ForTransaction(transactionID)
	if documentID != nil {
		event = event.ForDocument(*documentID)
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		return resolved, err
	}

	return resolved, nil
}
