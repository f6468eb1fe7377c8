package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/procurement-reconciler/internal/domain/transaction"
	"github.com/procurement-reconciler/internal/platform/persistence"
)

const transactionColumns = `id, transaction_key, po_number, vendor_name, country, currency, state,
		last_reconciled_at, created_at, updated_at`

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.TransactionKey,
		&tx.PONumber,
		&tx.VendorName,
		&tx.Country,
		&tx.Currency,
		&tx.State,
		&tx.LastReconciledAt,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// GetByKey retrieves a transaction by its grouping key
func (r *TransactionRepository) GetByKey(ctx context.Context, transactionKey string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_key = $1`

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query, transactionKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{}
		}
		r.logger.Error("Failed to get transaction by key", "transaction_key", transactionKey, "error", err)
		return nil, fmt.Errorf("failed to get transaction by key: %w", err)
	}

	return tx, nil
}

// Upsert creates the transaction on first routing, or refreshes its
// representative fields. Non-blank incoming values replace stored ones, blanks
// never erase anything.
func (r *TransactionRepository) Upsert(ctx context.Context, fields transaction.UpsertFields) (*transaction.Transaction, error) {
	query := `
		INSERT INTO transactions (id, transaction_key, po_number, vendor_name, country, currency, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (transaction_key) DO UPDATE SET
			po_number = COALESCE(NULLIF(EXCLUDED.po_number, ''), transactions.po_number),
			vendor_name = COALESCE(NULLIF(EXCLUDED.vendor_name, ''), transactions.vendor_name),
			country = COALESCE(NULLIF(EXCLUDED.country, ''), transactions.country),
			currency = COALESCE(NULLIF(EXCLUDED.currency, ''), transactions.currency),
			updated_at = NOW()
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query,
		uuid.New(),
		fields.TransactionKey,
		fields.PONumber,
		fields.VendorName,
		fields.Country,
		fields.Currency,
		transaction.StateWaitingForInvoiceAndGRN,
	))
	if err != nil {
		r.logger.Error("Failed to upsert transaction", "transaction_key", fields.TransactionKey, "error", err)
		return nil, fmt.Errorf("failed to upsert transaction: %w", err)
	}

	return tx, nil
}

// AttachDocument links a document to the transaction. Attaching twice is a no-op.
func (r *TransactionRepository) AttachDocument(ctx context.Context, transactionID, documentID uuid.UUID, role transaction.DocumentRole) error {
	query := `
		INSERT INTO transaction_documents (id, transaction_id, document_id, role, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (transaction_id, document_id) DO NOTHING
	`

	_, err := r.querier.Exec(ctx, query, uuid.New(), transactionID, documentID, role)
	if err != nil {
		r.logger.Error("Failed to attach document to transaction",
			"transaction_id", transactionID.String(), "document_id", documentID.String(), "error", err)
		return fmt.Errorf("failed to attach document to transaction: %w", err)
	}

	return nil
}

// GetDocuments returns the transaction's attached documents joined with their
// extraction fields, most recently updated first
func (r *TransactionRepository) GetDocuments(ctx context.Context, transactionID uuid.UUID) ([]*transaction.DocumentRef, error) {
	query := `
		SELECT d.id, d.file_name, d.source_path, td.role, d.status, d.doc_type, d.confidence,
			d.po_number, d.invoice_number, d.grn_number, d.vendor_name, d.country, d.currency,
			d.total_amount, d.extracted,
			EXISTS (
				SELECT 1 FROM manual_review_items mri
				WHERE mri.document_id = d.id AND mri.status = 'OPEN'
			) AS has_open_review,
			d.processed_at, d.updated_at
		FROM transaction_documents td
		JOIN documents d ON d.id = td.document_id
		WHERE td.transaction_id = $1
		ORDER BY d.updated_at DESC
	`

	rows, err := r.querier.Query(ctx, query, transactionID)
	if err != nil {
		r.logger.Error("Failed to get transaction documents", "transaction_id", transactionID.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction documents: %w", err)
	}
	defer rows.Close()

	var refs []*transaction.DocumentRef
	for rows.Next() {
		var ref transaction.DocumentRef
		err := rows.Scan(
			&ref.DocumentID,
			&ref.FileName,
			&ref.SourcePath,
			&ref.Role,
			&ref.Status,
			&ref.DocType,
			&ref.Confidence,
			&ref.PONumber,
			&ref.InvoiceNumber,
			&ref.GRNNumber,
			&ref.VendorName,
			&ref.Country,
			&ref.Currency,
			&ref.TotalAmount,
			&ref.Extracted,
			&ref.HasOpenReview,
			&ref.ProcessedAt,
			&ref.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction document row: %w", err)
		}
		refs = append(refs, &ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction document rows: %w", err)
	}

	return refs, nil
}

// UpsertChecks overwrites the stored result for each (transaction, checkType) pair
func (r *TransactionRepository) UpsertChecks(ctx context.Context, transactionID uuid.UUID, checks []transaction.CheckResult) error {
	query := `
		INSERT INTO reconciliation_checks (id, transaction_id, check_type, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (transaction_id, check_type) DO UPDATE SET
			status = EXCLUDED.status,
			details = EXCLUDED.details,
			created_at = NOW()
	`

	for _, check := range checks {
		_, err := r.querier.Exec(ctx, query, uuid.New(), transactionID, check.CheckType, check.Status, check.Details)
		if err != nil {
			r.logger.Error("Failed to upsert reconciliation check",
				"transaction_id", transactionID.String(), "check_type", string(check.CheckType), "error", err)
			return fmt.Errorf("failed to upsert reconciliation check: %w", err)
		}
	}

	return nil
}

// GetChecks returns the transaction's check results ordered by check type
func (r *TransactionRepository) GetChecks(ctx context.Context, transactionID uuid.UUID) ([]*transaction.CheckResult, error) {
	query := `
		SELECT check_type, status, details, created_at
		FROM reconciliation_checks
		WHERE transaction_id = $1
		ORDER BY check_type ASC
	`

	rows, err := r.querier.Query(ctx, query, transactionID)
	if err != nil {
		r.logger.Error("Failed to get reconciliation checks", "transaction_id", transactionID.String(), "error", err)
		return nil, fmt.Errorf("failed to get reconciliation checks: %w", err)
	}
	defer rows.Close()

	var checks []*transaction.CheckResult
	for rows.Next() {
		var check transaction.CheckResult
		if err := rows.Scan(&check.CheckType, &check.Status, &check.Details, &check.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation check row: %w", err)
		}
		checks = append(checks, &check)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reconciliation check rows: %w", err)
	}

	return checks, nil
}

// UpdateState persists the recompute outcome and stamps last_reconciled_at
func (r *TransactionRepository) UpdateState(ctx context.Context, transactionID uuid.UUID, update transaction.StateUpdate) (*transaction.Transaction, error) {
	query := `
		UPDATE transactions
		SET state = $2, po_number = $3, vendor_name = $4, country = $5, currency = $6,
			last_reconciled_at = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query,
		transactionID,
		update.State,
		update.PONumber,
		update.VendorName,
		update.Country,
		update.Currency,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ID: transactionID}
		}
		r.logger.Error("Failed to update transaction state", "transaction_id", transactionID.String(), "error", err)
		return nil, fmt.Errorf("failed to update transaction state: %w", err)
	}

	return tx, nil
}

// List returns transactions matching the filters, most recently updated first
func (r *TransactionRepository) List(ctx context.Context, filters transaction.ListFilters, limit int) ([]*transaction.Transaction, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}

	if filters.State != "" {
		args = append(args, filters.State)
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)))
	}
	if filters.Vendor != "" {
		args = append(args, "%"+filters.Vendor+"%")
		conditions = append(conditions, fmt.Sprintf("vendor_name ILIKE $%d", len(args)))
	}
	if filters.Country != "" {
		args = append(args, filters.Country)
		conditions = append(conditions, fmt.Sprintf("country = $%d", len(args)))
	}
	if filters.Currency != "" {
		args = append(args, filters.Currency)
		conditions = append(conditions, fmt.Sprintf("currency = $%d", len(args)))
	}
	if filters.Query != "" {
		args = append(args, "%"+filters.Query+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(transaction_key ILIKE $%d OR po_number ILIKE $%d OR vendor_name ILIKE $%d)", n, n, n))
	}

	args = append(args, limit)
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY updated_at DESC
		LIMIT $` + fmt.Sprint(len(args))

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// RoleCounts returns per-role attachment counts for the given transactions
func (r *TransactionRepository) RoleCounts(ctx context.Context, transactionIDs []uuid.UUID) (map[uuid.UUID]transaction.RoleCounts, error) {
	counts := make(map[uuid.UUID]transaction.RoleCounts, len(transactionIDs))
	if len(transactionIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT transaction_id, role, COUNT(*)
		FROM transaction_documents
		WHERE transaction_id = ANY($1)
		GROUP BY transaction_id, role
	`

	rows, err := r.querier.Query(ctx, query, transactionIDs)
	if err != nil {
		r.logger.Error("Failed to count transaction document roles", "error", err)
		return nil, fmt.Errorf("failed to count transaction document roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var transactionID uuid.UUID
		var role transaction.DocumentRole
		var count int
		if err := rows.Scan(&transactionID, &role, &count); err != nil {
			return nil, fmt.Errorf("failed to scan role count row: %w", err)
		}

		current := counts[transactionID]
		switch role {
		case transaction.RolePO:
			current.PO = count
		case transaction.RoleInvoice:
			current.Invoice = count
		case transaction.RoleGRN:
			current.GRN = count
		default:
			current.Other = count
		}
		counts[transactionID] = current
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate role count rows: %w", err)
	}

	return counts, nil
}

// Count returns the total number of transactions
func (r *TransactionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count transactions", "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// CountExceptions returns the number of transactions in any non-matched state
func (r *TransactionRepository) CountExceptions(ctx context.Context) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE state <> $1`, transaction.StateMatched).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count exception transactions", "error", err)
		return 0, fmt.Errorf("failed to count exception transactions: %w", err)
	}
	return count, nil
}

// StateBreakdown returns transaction counts grouped by state
func (r *TransactionRepository) StateBreakdown(ctx context.Context) ([]transaction.StateCount, error) {
	query := `
		SELECT state, COUNT(*)
		FROM transactions
		GROUP BY state
		ORDER BY state ASC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to get state breakdown", "error", err)
		return nil, fmt.Errorf("failed to get state breakdown: %w", err)
	}
	defer rows.Close()

	var breakdown []transaction.StateCount
	for rows.Next() {
		var row transaction.StateCount
		if err := rows.Scan(&row.State, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan state breakdown row: %w", err)
		}
		breakdown = append(breakdown, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate state breakdown rows: %w", err)
	}

	return breakdown, nil
}

// ListExceptions returns the most recently touched non-matched transactions
func (r *TransactionRepository) ListExceptions(ctx context.Context, limit int) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE state <> $1
		ORDER BY updated_at DESC
		LIMIT $2`

	rows, err := r.querier.Query(ctx, query, transaction.StateMatched, limit)
	if err != nil {
		r.logger.Error("Failed to list exception transactions", "error", err)
		return nil, fmt.Errorf("failed to list exception transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*transaction.Transaction, error) {
	var txs []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction rows: %w", err)
	}
	return txs, nil
}
