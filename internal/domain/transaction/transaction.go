package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/procurement-reconciler/internal/domain/document"
)

// State defines the reconciliation states a transaction can be in
type State string

const (
	StateWaitingForPO            State = "WAITING_FOR_PO"
	StateWaitingForInvoice       State = "WAITING_FOR_INVOICE"
	StateWaitingForGoodsReceipt  State = "WAITING_FOR_GOODS_RECEIPT"
	StateWaitingForInvoiceAndGRN State = "WAITING_FOR_INVOICE_AND_GRN"
	StateReadyToReconcile        State = "READY_TO_RECONCILE"
	StateMatched                 State = "MATCHED"
	StateAmountMismatch          State = "AMOUNT_MISMATCH"
	StateQtyMismatch             State = "QTY_MISMATCH"
	StateDuplicateInvoice        State = "DUPLICATE_INVOICE"
	StateFxOrRegionMismatch      State = "FX_OR_REGION_MISMATCH"
	StateLowConfidence           State = "LOW_CONFIDENCE"
	StateParseFailed             State = "PARSE_FAILED"
)

// DocumentRole defines how an attached document participates in reconciliation
type DocumentRole string

const (
	RolePO      DocumentRole = "PO"
	RoleInvoice DocumentRole = "INVOICE"
	RoleGRN     DocumentRole = "GRN"
	RoleOther   DocumentRole = "OTHER"
)

// RoleForDocType maps an inferred document type to its attachment role
func RoleForDocType(docType document.Type) DocumentRole {
	switch docType {
	case document.TypePurchaseOrder:
		return RolePO
	case document.TypeInvoice:
		return RoleInvoice
	case document.TypeGoodsReceipt:
		return RoleGRN
	default:
		return RoleOther
	}
}

// Transaction is the reconciliation unit grouping a PO with its invoices and GRNs.
// The representative fields are best-effort, filled first-non-blank-wins from
// attached documents.
type Transaction struct {
	ID               uuid.UUID  `json:"id"`
	TransactionKey   string     `json:"transaction_key"`
	PONumber         string     `json:"po_number,omitempty"`
	VendorName       string     `json:"vendor_name,omitempty"`
	Country          string     `json:"country,omitempty"`
	Currency         string     `json:"currency,omitempty"`
	State            State      `json:"state"`
	LastReconciledAt *time.Time `json:"last_reconciled_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DocumentRef is a transaction's view of one attached document, as consumed by
// the check engine and the rollup artifact
type DocumentRef struct {
	DocumentID    uuid.UUID                 `json:"document_id"`
	FileName      string                    `json:"file_name"`
	SourcePath    string                    `json:"source_path"`
	Role          DocumentRole              `json:"role"`
	Status        document.Status           `json:"status"`
	DocType       document.Type             `json:"doc_type"`
	Confidence    *float64                  `json:"confidence,omitempty"`
	PONumber      string                    `json:"po_number,omitempty"`
	InvoiceNumber string                    `json:"invoice_number,omitempty"`
	GRNNumber     string                    `json:"grn_number,omitempty"`
	VendorName    string                    `json:"vendor_name,omitempty"`
	Country       string                    `json:"country,omitempty"`
	Currency      string                    `json:"currency,omitempty"`
	TotalAmount   *float64                  `json:"total_amount,omitempty"`
	Extracted     *document.ExtractedRecord `json:"extracted,omitempty"`
	HasOpenReview bool                      `json:"has_open_review"`
	ProcessedAt   *time.Time                `json:"processed_at,omitempty"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// RoleCounts summarizes attached documents per role
type RoleCounts struct {
	PO      int `json:"PO"`
	Invoice int `json:"INVOICE"`
	GRN     int `json:"GRN"`
	Other   int `json:"OTHER"`
}

// StateCount is one row of the reports state breakdown
type StateCount struct {
	State State `json:"state"`
	Count int64 `json:"count"`
}
