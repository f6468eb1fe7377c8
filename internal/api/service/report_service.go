package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/procurement-reconciler/internal/domain/document"
	"github.com/procurement-reconciler/internal/domain/transaction"
)

const exceptionQueueLimit = 20

// ReportServiceImpl implements the ReportService interface
type ReportServiceImpl struct {
	documentRepo    document.Repository
	transactionRepo transaction.Repository
	logger          *slog.Logger
}

// NewReportService creates a new report service
func NewReportService(logger *slog.Logger, documentRepo document.Repository, transactionRepo transaction.Repository) ReportService {
	return &ReportServiceImpl{
		documentRepo:    documentRepo,
		transactionRepo: transactionRepo,
		logger:          logger,
	}
}

// Summary collects the KPI counters, the per-state transaction breakdown, and
// the exception queue in one concurrent pass
func (s *ReportServiceImpl) Summary(ctx context.Context) (*ReportSummary, error) {
	summary := &ReportSummary{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.documentRepo.Count(gctx)
		if err != nil {
			return err
		}
		summary.KPIs.TotalDocs = total
		return nil
	})
	g.Go(func() error {
		processed, err := s.documentRepo.CountByStatus(gctx, document.StatusProcessed)
		if err != nil {
			return err
		}
		summary.KPIs.ProcessedDocs = processed
		return nil
	})
	g.Go(func() error {
		total, err := s.transactionRepo.Count(gctx)
		if err != nil {
			return err
		}
		summary.KPIs.TotalTransactions = total
		return nil
	})
	g.Go(func() error {
		exceptions, err := s.transactionRepo.CountExceptions(gctx)
		if err != nil {
			return err
		}
		summary.KPIs.Exceptions = exceptions
		return nil
	})
	g.Go(func() error {
		breakdown, err := s.transactionRepo.StateBreakdown(gctx)
		if err != nil {
			return err
		}
		summary.StateBreakdown = breakdown
		return nil
	})
	g.Go(func() error {
		queue, err := s.transactionRepo.ListExceptions(gctx, exceptionQueueLimit)
		if err != nil {
			return err
		}
		summary.ExceptionQueue = queue
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to build reports summary", "error", err)
		return nil, err
	}

	if summary.StateBreakdown == nil {
		summary.StateBreakdown = []transaction.StateCount{}
	}
	if summary.ExceptionQueue == nil {
		summary.ExceptionQueue = []*transaction.Transaction{}
	}

	return summary, nil
}
