package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/procurement-reconciler/internal/domain/audit"
	"github.com/procurement-reconciler/internal/domain/document"
	"github.com/procurement-reconciler/internal/domain/review"
	"github.com/procurement-reconciler/internal/domain/transaction"
	"github.com/procurement-reconciler/internal/pipeline"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *document.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) GetBySHA256(ctx context.Context, sha256 string) (*document.Document, error) {
	args := m.Called(ctx, sha256)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) TouchMetadata(ctx context.Context, id uuid.UUID, meta document.SourceMetadata) error {
	args := m.Called(ctx, id, meta)
	return args.Error(0)
}

func (m *MockDocumentRepository) ListPending(ctx context.Context, limit int, includeFailed bool) ([]*document.Document, error) {
	args := m.Called(ctx, limit, includeFailed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) Claim(ctx context.Context, id uuid.UUID, version int) (bool, error) {
	args := m.Called(ctx, id, version)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) MarkProcessed(ctx context.Context, id uuid.UUID, fields document.ProcessedFields) (*document.Document, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) (*document.Document, error) {
	args := m.Called(ctx, id, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindProcessedPO(ctx context.Context, poNumber string) (*document.Document, error) {
	args := m.Called(ctx, poNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) CountDistinctHashes(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) CountByStatus(ctx context.Context, status document.Status) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, filters document.ListFilters, limit int) ([]*document.Document, error) {
	args := m.Called(ctx, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) WithTx(tx pgx.Tx) document.Repository {
	return m
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByKey(ctx context.Context, transactionKey string) (*transaction.Transaction, error) {
	args := m.Called(ctx, transactionKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Upsert(ctx context.Context, fields transaction.UpsertFields) (*transaction.Transaction, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) AttachDocument(ctx context.Context, transactionID, documentID uuid.UUID, role transaction.DocumentRole) error {
	args := m.Called(ctx, transactionID, documentID, role)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetDocuments(ctx context.Context, transactionID uuid.UUID) ([]*transaction.DocumentRef, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.DocumentRef), args.Error(1)
}

func (m *MockTransactionRepository) UpsertChecks(ctx context.Context, transactionID uuid.UUID, checks []transaction.CheckResult) error {
	args := m.Called(ctx, transactionID, checks)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetChecks(ctx context.Context, transactionID uuid.UUID) ([]*transaction.CheckResult, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.CheckResult), args.Error(1)
}

func (m *MockTransactionRepository) UpdateState(ctx context.Context, transactionID uuid.UUID, update transaction.StateUpdate) (*transaction.Transaction, error) {
	args := m.Called(ctx, transactionID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) List(ctx context.Context, filters transaction.ListFilters, limit int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) RoleCounts(ctx context.Context, transactionIDs []uuid.UUID) (map[uuid.UUID]transaction.RoleCounts, error) {
	args := m.Called(ctx, transactionIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]transaction.RoleCounts), args.Error(1)
}

func (m *MockTransactionRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) CountExceptions(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) StateBreakdown(ctx context.Context) ([]transaction.StateCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]transaction.StateCount), args.Error(1)
}

func (m *MockTransactionRepository) ListExceptions(ctx context.Context, limit int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) WithTx(tx pgx.Tx) review.Repository {
	return m
}

func (m *MockReviewRepository) Create(ctx context.Context, item *review.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockReviewRepository) ListOpenByDocument(ctx context.Context, documentID uuid.UUID) ([]*review.Item, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*review.Item), args.Error(1)
}

func (m *MockReviewRepository) StatusByTransactions(ctx context.Context, transactionIDs []uuid.UUID) (map[uuid.UUID]review.TransactionReviewStatus, error) {
	args := m.Called(ctx, transactionIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]review.TransactionReviewStatus), args.Error(1)
}

func (m *MockReviewRepository) ResolveByDocument(ctx context.Context, documentID uuid.UUID, notes string) (int64, error) {
	args := m.Called(ctx, documentID, notes)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReviewRepository) ResolveByTransaction(ctx context.Context, transactionID uuid.UUID, notes string) (int64, error) {
	args := m.Called(ctx, transactionID, notes)
	return args.Get(0).(int64), args.Error(1)
}

// recordingAuditRepository keeps appended events in memory so tests can assert
// on the emitted event stream
type recordingAuditRepository struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (r *recordingAuditRepository) Append(_ context.Context, event *audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAuditRepository) ListByTransaction(context.Context, uuid.UUID, int) ([]*audit.Event, error) {
	return nil, nil
}

func (r *recordingAuditRepository) ListByDocument(context.Context, uuid.UUID, int) ([]*audit.Event, error) {
	return nil, nil
}

func (r *recordingAuditRepository) eventTypes() []audit.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]audit.EventType, 0, len(r.events))
	for _, event := range r.events {
		types = append(types, event.EventType)
	}
	return types
}

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Scan(ctx context.Context) (pipeline.ScanSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(pipeline.ScanSummary), args.Error(1)
}

func (m *MockIngestService) Process(ctx context.Context, opts pipeline.ProcessOptions) (pipeline.ProcessSummary, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(pipeline.ProcessSummary), args.Error(1)
}

func (m *MockIngestService) Rerun(ctx context.Context, documentID uuid.UUID) (pipeline.ProcessSummary, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).(pipeline.ProcessSummary), args.Error(1)
}

type MockArtifactLister struct {
	mock.Mock
}

func (m *MockArtifactLister) ListTransactionArtifacts(ctx context.Context, transactionKey string) ([]string, error) {
	args := m.Called(ctx, transactionKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
