package transaction

import "time"

// CheckType defines the fixed set of reconciliation rule evaluations
type CheckType string

const (
	CheckPOPresent        CheckType = "PO_PRESENT"
	CheckInvoicePresent   CheckType = "INVOICE_PRESENT"
	CheckGRNPresent       CheckType = "GRN_PRESENT"
	CheckAmountMatch      CheckType = "AMOUNT_MATCH"
	CheckQuantityMatch    CheckType = "QUANTITY_MATCH"
	CheckDuplicateInvoice CheckType = "DUPLICATE_INVOICE"
	CheckFxOrRegionMatch  CheckType = "FX_OR_REGION_MATCH"
	CheckLowConfidence    CheckType = "LOW_CONFIDENCE"
	CheckParseFailed      CheckType = "PARSE_FAILED"
)

// CheckStatus defines the outcome of a single check evaluation
type CheckStatus string

const (
	CheckStatusOK       CheckStatus = "OK"
	CheckStatusMissing  CheckStatus = "MISSING"
	CheckStatusMismatch CheckStatus = "MISMATCH"
	CheckStatusPending  CheckStatus = "PENDING"
	CheckStatusError    CheckStatus = "ERROR"
)

// CheckResult is one rule evaluation attached to a transaction. Exactly one row
// exists per (transaction, checkType); every recompute overwrites the prior result.
type CheckResult struct {
	CheckType CheckType      `json:"checkType"`
	Status    CheckStatus    `json:"status"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"createdAt,omitempty"`
}
