package service

import (
	"context"
	"log/slog"

	"github.com/procurement-reconciler/internal/domain/document"
)

const documentListLimit = 500

// DocumentServiceImpl implements the DocumentService interface
type DocumentServiceImpl struct {
	documentRepo document.Repository
	logger       *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(logger *slog.Logger, documentRepo document.Repository) DocumentService {
	return &DocumentServiceImpl{
		documentRepo: documentRepo,
		logger:       logger,
	}
}

// List returns documents matching the filters, most recently updated first
func (s *DocumentServiceImpl) List(ctx context.Context, filters document.ListFilters) ([]*document.Document, error) {
	docs, err := s.documentRepo.List(ctx, filters, documentListLimit)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*document.Document{}
	}
	return docs, nil
}
