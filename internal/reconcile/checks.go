// Package reconcile implements the rule-based check engine and the state
// machine that together derive a transaction's reconciliation state from its
// attached document set. Both are pure: recomputation over the same document
// set always yields the same checks, flags, and state.
package reconcile

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/procurement-reconciler/internal/domain/document"
	"github.com/procurement-reconciler/internal/domain/transaction"
)

// Flags are the boolean signals the state machine consumes
type Flags struct {
	HasPO            bool
	HasInvoice       bool
	HasGRN           bool
	ParseFailed      bool
	LowConfidence    bool
	DuplicateInvoice bool
	AmountMismatch   bool
	QtyMismatch      bool
	FxMismatch       bool
}

// Computation bundles the persisted check rows and the derived flags
type Computation struct {
	Checks []transaction.CheckResult
	Flags  Flags
}

func normalizeText(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// DetectDuplicateInvoiceNumbers reports whether any two invoice numbers collide
// after trimming and case-folding. Empty values never count.
func DetectDuplicateInvoiceNumbers(invoiceNumbers []string) bool {
	seen := make(map[string]struct{}, len(invoiceNumbers))
	for _, raw := range invoiceNumbers {
		invoiceNumber := normalizeText(raw)
		if invoiceNumber == "" {
			continue
		}
		if _, ok := seen[invoiceNumber]; ok {
			return true
		}
		seen[invoiceNumber] = struct{}{}
	}
	return false
}

// IsAmountMismatch compares PO and invoice totals against the tolerance
// fraction. The comparison is strict: a deviation exactly at the tolerance is
// not a mismatch. diffPct is nil when either total is unknown or the PO total
// is zero.
func IsAmountMismatch(poTotal, invoiceTotal *float64, tolerancePct float64) (mismatch bool, diffPct *float64) {
	if poTotal == nil || invoiceTotal == nil {
		return false, nil
	}

	if *poTotal == 0 {
		return *invoiceTotal != 0, nil
	}

	pct := math.Abs(*invoiceTotal-*poTotal) / math.Abs(*poTotal)
	return pct > tolerancePct, &pct
}

func lineItems(doc *transaction.DocumentRef) []document.LineItem {
	if doc == nil || doc.Extracted == nil {
		return nil
	}
	return doc.Extracted.LineItems
}

// isQuantityMismatch flags a shortfall: any PO line whose normalized description
// also appears in the GRN with a strictly smaller quantity. Unmatched
// descriptions are not compared; missing quantities count as zero.
func isQuantityMismatch(poDoc, grnDoc *transaction.DocumentRef) bool {
	poItems := lineItems(poDoc)
	grnItems := lineItems(grnDoc)
	if len(poItems) == 0 || len(grnItems) == 0 {
		return false
	}

	grnQtyByDesc := make(map[string]float64, len(grnItems))
	for _, item := range grnItems {
		desc := normalizeText(item.Description)
		if desc == "" {
			continue
		}
		qty := 0.0
		if item.Quantity != nil {
			qty = *item.Quantity
		}
		grnQtyByDesc[desc] = qty
	}

	for _, poItem := range poItems {
		desc := normalizeText(poItem.Description)
		if desc == "" {
			continue
		}
		poQty := 0.0
		if poItem.Quantity != nil {
			poQty = *poItem.Quantity
		}
		grnQty, ok := grnQtyByDesc[desc]
		if !ok {
			continue
		}
		if grnQty < poQty {
			return true
		}
	}
	return false
}

// isFxOrRegionMismatch flags more than one distinct country or currency across
// the given documents, case-normalized, blanks ignored
func isFxOrRegionMismatch(docs []*transaction.DocumentRef) bool {
	countries := make(map[string]struct{})
	currencies := make(map[string]struct{})

	for _, doc := range docs {
		country := strings.ToUpper(strings.TrimSpace(doc.Country))
		currency := strings.ToUpper(strings.TrimSpace(doc.Currency))
		if country != "" {
			countries[country] = struct{}{}
		}
		if currency != "" {
			currencies[currency] = struct{}{}
		}
	}

	return len(countries) > 1 || len(currencies) > 1
}

func distinctNonBlank(docs []*transaction.DocumentRef, field func(*transaction.DocumentRef) string) []string {
	seen := make(map[string]struct{})
	var values []string
	for _, doc := range docs {
		v := field(doc)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

// ComputeChecks evaluates the full check set for a transaction's documents.
// Only PROCESSED documents of the matching type participate in presence and
// value checks; any FAILED document trips the parse-failure flag regardless
// of type.
func ComputeChecks(docs []*transaction.DocumentRef, confidenceThreshold, amountTolerancePct float64) Computation {
	var poDocs, invoiceDocs, grnDocs []*transaction.DocumentRef
	for _, doc := range docs {
		if doc.Status != document.StatusProcessed {
			continue
		}
		switch doc.DocType {
		case document.TypePurchaseOrder:
			poDocs = append(poDocs, doc)
		case document.TypeInvoice:
			invoiceDocs = append(invoiceDocs, doc)
		case document.TypeGoodsReceipt:
			grnDocs = append(grnDocs, doc)
		}
	}

	hasPO := len(poDocs) > 0
	hasInvoice := len(invoiceDocs) > 0
	hasGRN := len(grnDocs) > 0

	parseFailed := false
	var failedDocumentIDs []uuid.UUID
	for _, doc := range docs {
		if doc.Status == document.StatusFailed {
			parseFailed = true
			failedDocumentIDs = append(failedDocumentIDs, doc.DocumentID)
		}
	}

	confidenceDocs := make([]*transaction.DocumentRef, 0, len(poDocs)+len(invoiceDocs)+len(grnDocs))
	confidenceDocs = append(confidenceDocs, poDocs...)
	confidenceDocs = append(confidenceDocs, invoiceDocs...)
	confidenceDocs = append(confidenceDocs, grnDocs...)

	lowConfidence := false
	var belowThresholdIDs []uuid.UUID
	for _, doc := range confidenceDocs {
		if doc.Confidence != nil && *doc.Confidence < confidenceThreshold {
			lowConfidence = true
			belowThresholdIDs = append(belowThresholdIDs, doc.DocumentID)
		}
	}

	invoiceNumbers := make([]string, 0, len(invoiceDocs))
	for _, doc := range invoiceDocs {
		invoiceNumbers = append(invoiceNumbers, doc.InvoiceNumber)
	}
	duplicateInvoice := DetectDuplicateInvoiceNumbers(invoiceNumbers)

	// Primary document = first matching item in document order
	var poPrimary, invoicePrimary, grnPrimary *transaction.DocumentRef
	if hasPO {
		poPrimary = poDocs[0]
	}
	if hasInvoice {
		invoicePrimary = invoiceDocs[0]
	}
	if hasGRN {
		grnPrimary = grnDocs[0]
	}

	var poTotal, invoiceTotal *float64
	if poPrimary != nil {
		poTotal = poPrimary.TotalAmount
	}
	if invoicePrimary != nil {
		invoiceTotal = invoicePrimary.TotalAmount
	}
	amountMismatch, diffPct := IsAmountMismatch(poTotal, invoiceTotal, amountTolerancePct)
	qtyMismatch := isQuantityMismatch(poPrimary, grnPrimary)
	fxMismatch := isFxOrRegionMismatch(confidenceDocs)

	presenceStatus := func(present bool, anyOther bool) transaction.CheckStatus {
		if present {
			return transaction.CheckStatusOK
		}
		if anyOther {
			return transaction.CheckStatusMissing
		}
		return transaction.CheckStatusPending
	}

	amountStatus := transaction.CheckStatusPending
	if hasPO && hasInvoice {
		amountStatus = transaction.CheckStatusOK
		if amountMismatch {
			amountStatus = transaction.CheckStatusMismatch
		}
	}

	qtyStatus := transaction.CheckStatusPending
	if hasPO && hasGRN {
		qtyStatus = transaction.CheckStatusOK
		if qtyMismatch {
			qtyStatus = transaction.CheckStatusMismatch
		}
	}

	duplicateStatus := transaction.CheckStatusOK
	if duplicateInvoice {
		duplicateStatus = transaction.CheckStatusMismatch
	}

	fxStatus := transaction.CheckStatusPending
	if hasPO && (hasInvoice || hasGRN) {
		fxStatus = transaction.CheckStatusOK
		if fxMismatch {
			fxStatus = transaction.CheckStatusMismatch
		}
	}

	confidenceStatus := transaction.CheckStatusOK
	if lowConfidence {
		confidenceStatus = transaction.CheckStatusMismatch
	}

	parseStatus := transaction.CheckStatusOK
	if parseFailed {
		parseStatus = transaction.CheckStatusError
	}

	var diffPctDetail any
	if diffPct != nil {
		diffPctDetail = *diffPct
	}
	var poTotalDetail, invoiceTotalDetail any
	if poTotal != nil {
		poTotalDetail = *poTotal
	}
	if invoiceTotal != nil {
		invoiceTotalDetail = *invoiceTotal
	}

	checks := []transaction.CheckResult{
		{
			CheckType: transaction.CheckPOPresent,
			Status:    presenceStatus(hasPO, hasInvoice || hasGRN),
			Details:   map[string]any{"poCount": len(poDocs)},
		},
		{
			CheckType: transaction.CheckInvoicePresent,
			Status:    presenceStatus(hasInvoice, hasPO || hasGRN),
			Details:   map[string]any{"invoiceCount": len(invoiceDocs)},
		},
		{
			CheckType: transaction.CheckGRNPresent,
			Status:    presenceStatus(hasGRN, hasPO || hasInvoice),
			Details:   map[string]any{"grnCount": len(grnDocs)},
		},
		{
			CheckType: transaction.CheckAmountMatch,
			Status:    amountStatus,
			Details: map[string]any{
				"poTotal":      poTotalDetail,
				"invoiceTotal": invoiceTotalDetail,
				"diffPct":      diffPctDetail,
			},
		},
		{
			CheckType: transaction.CheckQuantityMatch,
			Status:    qtyStatus,
			Details: map[string]any{
				"compared": hasPO && hasGRN,
				"method":   "line_item_description_quantity",
			},
		},
		{
			CheckType: transaction.CheckDuplicateInvoice,
			Status:    duplicateStatus,
			Details:   map[string]any{"invoiceNumbers": invoiceNumbers},
		},
		{
			CheckType: transaction.CheckFxOrRegionMatch,
			Status:    fxStatus,
			Details: map[string]any{
				"countries":  distinctNonBlank(docs, func(d *transaction.DocumentRef) string { return d.Country }),
				"currencies": distinctNonBlank(docs, func(d *transaction.DocumentRef) string { return d.Currency }),
			},
		},
		{
			CheckType: transaction.CheckLowConfidence,
			Status:    confidenceStatus,
			Details: map[string]any{
				"threshold":                 confidenceThreshold,
				"belowThresholdDocumentIds": belowThresholdIDs,
			},
		},
		{
			CheckType: transaction.CheckParseFailed,
			Status:    parseStatus,
			Details:   map[string]any{"failedDocumentIds": failedDocumentIDs},
		},
	}

	return Computation{
		Checks: checks,
		Flags: Flags{
			HasPO:            hasPO,
			HasInvoice:       hasInvoice,
			HasGRN:           hasGRN,
			ParseFailed:      parseFailed,
			LowConfidence:    lowConfidence,
			DuplicateInvoice: duplicateInvoice,
			AmountMismatch:   amountMismatch,
			QtyMismatch:      qtyMismatch,
			FxMismatch:       fxMismatch,
		},
	}
}
