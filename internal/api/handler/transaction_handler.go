package handler

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/procurement-reconciler/internal/api/service"
	"github.com/procurement-reconciler/internal/domain/transaction"
)

// TransactionHandler handles HTTP requests for transaction operations
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// TransactionActionRequest is the body of POST /transactions/:id
type TransactionActionRequest struct {
	Action     string `json:"action"`
	DocumentID string `json:"documentId"`
	Notes      string `json:"notes"`
}

// List returns transactions matching the query filters
func (h *TransactionHandler) List(c *gin.Context) {
	filters := transaction.ListFilters{
		State:    transaction.State(c.Query("state")),
		Vendor:   c.Query("vendor"),
		Country:  c.Query("country"),
		Currency: c.Query("currency"),
		Query:    c.Query("q"),
	}

	items, err := h.transactionService.List(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("Failed to list transactions", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"items": items, "count": len(items)})
}

// GetByID returns the transaction detail, returning 404 if not found
func (h *TransactionHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid transaction ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	detail, err := h.transactionService.GetDetail(c.Request.Context(), id)
	if err != nil {
		var notFound transaction.ErrTransactionNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Transaction not found")
			return
		}
		h.logger.Error("Failed to get transaction detail", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, detail)
}

// Artifacts returns the blob store keys of the transaction's stored artifacts
func (h *TransactionHandler) Artifacts(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	keys, err := h.transactionService.ListArtifacts(c.Request.Context(), id)
	if err != nil {
		var notFound transaction.ErrTransactionNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Transaction not found")
			return
		}
		h.logger.Error("Failed to list transaction artifacts", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"items": keys, "count": len(keys)})
}

// Action dispatches transaction-scoped actions: rerun and resolve-review
func (h *TransactionHandler) Action(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	var req TransactionActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var documentID *uuid.UUID
	if req.DocumentID != "" {
		parsed, err := uuid.Parse(req.DocumentID)
		if err != nil {
			RespondBadRequest(c, "Invalid documentId")
			return
		}
		documentID = &parsed
	}

	switch req.Action {
	case "rerun":
		if documentID == nil {
			RespondBadRequest(c, "documentId is required for rerun action")
			return
		}
		summary, err := h.transactionService.RerunDocument(c.Request.Context(), id, *documentID)
		if err != nil {
			var notFound transaction.ErrTransactionNotFound
			if errors.As(err, &notFound) {
				RespondNotFound(c, "Transaction not found")
				return
			}
			h.logger.Error("Failed to rerun document", "id", idParam, "error", err)
			RespondInternalError(c)
			return
		}
		RespondOK(c, gin.H{"message": "Re-run complete", "summary": summary})

	case "resolve-review":
		resolved, err := h.transactionService.ResolveReview(c.Request.Context(), id, documentID, strings.TrimSpace(req.Notes))
		if err != nil {
			var notFound transaction.ErrTransactionNotFound
			if errors.As(err, &notFound) {
				RespondNotFound(c, "Transaction not found")
				return
			}
			h.logger.Error("Failed to resolve manual review", "id", idParam, "error", err)
			RespondInternalError(c)
			return
		}
		RespondOK(c, gin.H{"message": "Manual review marked resolved", "resolvedCount": resolved})

	default:
		RespondBadRequest(c, "Unsupported action")
	}
}
