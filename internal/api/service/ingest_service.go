package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/procurement-reconciler/internal/pipeline"
)

// IngestServiceImpl implements the IngestService interface on top of the
// ingest pipeline
type IngestServiceImpl struct {
	pipeline *pipeline.Service
}

// NewIngestService creates a new ingest service
func NewIngestService(p *pipeline.Service) IngestService {
	return &IngestServiceImpl{pipeline: p}
}

// Scan walks the raw directory and registers unseen documents
func (s *IngestServiceImpl) Scan(ctx context.Context) (pipeline.ScanSummary, error) {
	return s.pipeline.ScanAndRegister(ctx)
}

// Process extracts and reconciles pending documents
func (s *IngestServiceImpl) Process(ctx context.Context, opts pipeline.ProcessOptions) (pipeline.ProcessSummary, error) {
	return s.pipeline.ProcessPending(ctx, opts)
}

// Rerun forces one document back through extraction
func (s *IngestServiceImpl) Rerun(ctx context.Context, documentID uuid.UUID) (pipeline.ProcessSummary, error) {
	return s.pipeline.RerunDocument(ctx, documentID)
}
