package document

import (
	"time"

	"github.com/google/uuid"
)

// Status defines document lifecycle states
type Status string

const (
	StatusNew       Status = "NEW"
	StatusProcessed Status = "PROCESSED"
	StatusFailed    Status = "FAILED"
	StatusSkipped   Status = "SKIPPED"
)

// Type defines the inferred procurement document kinds
type Type string

const (
	TypePurchaseOrder Type = "PURCHASE_ORDER"
	TypeInvoice       Type = "INVOICE"
	TypeGoodsReceipt  Type = "GOODS_RECEIPT"
	TypeOther         Type = "OTHER"
	TypeUnknown       Type = "UNKNOWN"
)

// LineItem is one row of an extracted document's item table
type LineItem struct {
	Description string   `json:"description" validate:"omitempty"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unitPrice"`
	LineTotal   *float64 `json:"lineTotal"`
}

// ExtractedRecord is the canonical structured record produced by field extraction.
// String fields default to empty, numeric fields are nullable, and dates are
// normalized to YYYY-MM-DD or empty.
type ExtractedRecord struct {
	DocType       Type       `json:"docType" validate:"required,oneof=PURCHASE_ORDER INVOICE GOODS_RECEIPT OTHER"`
	PONumber      string     `json:"poNumber"`
	InvoiceNumber string     `json:"invoiceNumber"`
	GRNNumber     string     `json:"grnNumber"`
	VendorName    string     `json:"vendorName"`
	VendorID      string     `json:"vendorId"`
	Country       string     `json:"country"`
	Currency      string     `json:"currency"`
	DocDate       string     `json:"docDate"`
	DueDate       string     `json:"dueDate"`
	TotalAmount   *float64   `json:"totalAmount"`
	TaxAmount     *float64   `json:"taxAmount"`
	LineItems     []LineItem `json:"lineItems"`
	Confidence    float64    `json:"confidence" validate:"gte=0,lte=1"`
	Notes         string     `json:"notes"`
}

// Document represents a single discovered raw file and its extraction outcome
type Document struct {
	ID            uuid.UUID        `json:"id"`
	SourcePath    string           `json:"source_path"`
	FileName      string           `json:"file_name"`
	SHA256        string           `json:"sha256"` // Content hash, unique, used for dedup
	MimeType      string           `json:"mime_type,omitempty"`
	SizeBytes     int64            `json:"size_bytes"`
	Status        Status           `json:"status"`
	DocType       Type             `json:"doc_type"`
	Confidence    *float64         `json:"confidence,omitempty"`
	Extracted     *ExtractedRecord `json:"extracted,omitempty"`
	RawText       string           `json:"raw_text,omitempty"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	PONumber      string           `json:"po_number,omitempty"`
	InvoiceNumber string           `json:"invoice_number,omitempty"`
	GRNNumber     string           `json:"grn_number,omitempty"`
	VendorName    string           `json:"vendor_name,omitempty"`
	VendorID      string           `json:"vendor_id,omitempty"`
	Country       string           `json:"country,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	DocDate       *time.Time       `json:"doc_date,omitempty"`
	DueDate       *time.Time       `json:"due_date,omitempty"`
	TotalAmount   *float64         `json:"total_amount,omitempty"`
	TaxAmount     *float64         `json:"tax_amount,omitempty"`
	Version       int              `json:"version"` // For optimistic claim
	FirstSeenAt   time.Time        `json:"first_seen_at"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ScannedFile describes one candidate file reported by the raw-file scanner
type ScannedFile struct {
	SourcePath string `json:"source_path"`
	FileName   string `json:"file_name"`
	SizeBytes  int64  `json:"size_bytes"`
	MimeType   string `json:"mime_type"`
	SHA256     string `json:"sha256"`
}

// NewDiscovered creates a NEW document from a scanned file
func NewDiscovered(file ScannedFile) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:          uuid.New(),
		SourcePath:  file.SourcePath,
		FileName:    file.FileName,
		SHA256:      file.SHA256,
		MimeType:    file.MimeType,
		SizeBytes:   file.SizeBytes,
		Status:      StatusNew,
		DocType:     TypeUnknown,
		Version:     1,
		FirstSeenAt: now,
		UpdatedAt:   now,
	}
}
