package reconcile

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurement-reconciler/internal/domain/document"
	"github.com/procurement-reconciler/internal/domain/transaction"
)

func floatPtr(v float64) *float64 {
	return &v
}

func processedDoc(docType document.Type, mutate func(*transaction.DocumentRef)) *transaction.DocumentRef {
	doc := &transaction.DocumentRef{
		DocumentID: uuid.New(),
		Status:     document.StatusProcessed,
		DocType:    docType,
		Confidence: floatPtr(0.9),
	}
	if mutate != nil {
		mutate(doc)
	}
	return doc
}

func checkByType(t *testing.T, checks []transaction.CheckResult, checkType transaction.CheckType) transaction.CheckResult {
	t.Helper()
	for _, check := range checks {
		if check.CheckType == checkType {
			return check
		}
	}
	require.Failf(t, "check not found", "no %s check in result", checkType)
	return transaction.CheckResult{}
}

func TestIsAmountMismatch(t *testing.T) {
	testCases := []struct {
		name         string
		poTotal      *float64
		invoiceTotal *float64
		tolerance    float64
		wantMismatch bool
		wantDiffPct  *float64
	}{
		{
			name:         "Above Tolerance",
			poTotal:      floatPtr(100),
			invoiceTotal: floatPtr(103),
			tolerance:    0.02,
			wantMismatch: true,
			wantDiffPct:  floatPtr(0.03),
		},
		{
			name:         "Within Tolerance",
			poTotal:      floatPtr(100),
			invoiceTotal: floatPtr(101.5),
			tolerance:    0.02,
			wantMismatch: false,
			wantDiffPct:  floatPtr(0.015),
		},
		{
			name:         "Exactly At Tolerance",
			poTotal:      floatPtr(100),
			invoiceTotal: floatPtr(102),
			tolerance:    0.02,
			wantMismatch: false,
			wantDiffPct:  floatPtr(0.02),
		},
		{
			name:         "Missing PO Total",
			poTotal:      nil,
			invoiceTotal: floatPtr(50),
			tolerance:    0.02,
			wantMismatch: false,
			wantDiffPct:  nil,
		},
		{
			name:         "Missing Invoice Total",
			poTotal:      floatPtr(50),
			invoiceTotal: nil,
			tolerance:    0.02,
			wantMismatch: false,
			wantDiffPct:  nil,
		},
		{
			name:         "Zero PO With Nonzero Invoice",
			poTotal:      floatPtr(0),
			invoiceTotal: floatPtr(10),
			tolerance:    0.02,
			wantMismatch: true,
			wantDiffPct:  nil,
		},
		{
			name:         "Zero PO With Zero Invoice",
			poTotal:      floatPtr(0),
			invoiceTotal: floatPtr(0),
			tolerance:    0.02,
			wantMismatch: false,
			wantDiffPct:  nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mismatch, diffPct := IsAmountMismatch(tc.poTotal, tc.invoiceTotal, tc.tolerance)
			assert.Equal(t, tc.wantMismatch, mismatch)
			if tc.wantDiffPct == nil {
				assert.Nil(t, diffPct)
			} else {
				require.NotNil(t, diffPct)
				assert.InDelta(t, *tc.wantDiffPct, *diffPct, 1e-9)
			}
		})
	}
}

func TestDetectDuplicateInvoiceNumbers(t *testing.T) {
	testCases := []struct {
		name           string
		invoiceNumbers []string
		want           bool
	}{
		{name: "No Duplicates", invoiceNumbers: []string{"INV-1", "INV-2"}, want: false},
		{name: "Exact Duplicate", invoiceNumbers: []string{"INV-1", "INV-1"}, want: true},
		{name: "Case Insensitive Duplicate", invoiceNumbers: []string{"inv-1", "INV-1"}, want: true},
		{name: "Whitespace Duplicate", invoiceNumbers: []string{" INV-1 ", "INV-1"}, want: true},
		{name: "Empty Values Ignored", invoiceNumbers: []string{"", "  ", ""}, want: false},
		{name: "Empty Input", invoiceNumbers: nil, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectDuplicateInvoiceNumbers(tc.invoiceNumbers))
		})
	}
}

func TestComputeChecks_PresenceStatuses(t *testing.T) {
	t.Run("No Documents", func(t *testing.T) {
		result := ComputeChecks(nil, 0.75, 0.02)

		assert.Equal(t, transaction.CheckStatusPending, checkByType(t, result.Checks, transaction.CheckPOPresent).Status)
		assert.Equal(t, transaction.CheckStatusPending, checkByType(t, result.Checks, transaction.CheckInvoicePresent).Status)
		assert.Equal(t, transaction.CheckStatusPending, checkByType(t, result.Checks, transaction.CheckGRNPresent).Status)
	})

	t.Run("Invoice Without PO", func(t *testing.T) {
		docs := []*transaction.DocumentRef{
			processedDoc(document.TypeInvoice, func(d *transaction.DocumentRef) {
				d.InvoiceNumber = "INV-1"
			}),
		}
		result := ComputeChecks(docs, 0.75, 0.02)

		assert.Equal(t, transaction.CheckStatusMissing, checkByType(t, result.Checks, transaction.CheckPOPresent).Status)
		assert.Equal(t, transaction.CheckStatusOK, checkByType(t, result.Checks, transaction.CheckInvoicePresent).Status)
		assert.False(t, result.Flags.HasPO)
		assert.True(t, result.Flags.HasInvoice)
	})

	t.Run("Failed Document Excluded From Presence", func(t *testing.T) {
		docs := []*transaction.DocumentRef{
			{DocumentID: uuid.New(), Status: document.StatusFailed, DocType: document.TypePurchaseOrder},
		}
		result := ComputeChecks(docs, 0.75, 0.02)

		assert.False(t, result.Flags.HasPO)
		assert.True(t, result.Flags.ParseFailed)
		parseCheck := checkByType(t, result.Checks, transaction.CheckParseFailed)
		assert.Equal(t, transaction.CheckStatusError, parseCheck.Status)
		assert.Len(t, parseCheck.Details["failedDocumentIds"], 1)
	})
}

func TestComputeChecks_AmountDetails(t *testing.T) {
	docs := []*transaction.DocumentRef{
		processedDoc(document.TypePurchaseOrder, func(d *transaction.DocumentRef) {
			d.TotalAmount = floatPtr(100)
		}),
		processedDoc(document.TypeInvoice, func(d *transaction.DocumentRef) {
			d.TotalAmount = floatPtr(103)
			d.InvoiceNumber = "INV-9"
		}),
	}

	result := ComputeChecks(docs, 0.75, 0.02)

	amountCheck := checkByType(t, result.Checks, transaction.CheckAmountMatch)
	assert.Equal(t, transaction.CheckStatusMismatch, amountCheck.Status)
	assert.Equal(t, 100.0, amountCheck.Details["poTotal"])
	assert.Equal(t, 103.0, amountCheck.Details["invoiceTotal"])
	assert.InDelta(t, 0.03, amountCheck.Details["diffPct"].(float64), 1e-9)
	assert.True(t, result.Flags.AmountMismatch)
}

func TestComputeChecks_QuantityMismatch(t *testing.T) {
	poDoc := processedDoc(document.TypePurchaseOrder, func(d *transaction.DocumentRef) {
		d.Extracted = &document.ExtractedRecord{
			LineItems: []document.LineItem{
				{Description: "Steel Bolts", Quantity: floatPtr(100)},
				{Description: "Washers", Quantity: floatPtr(50)},
			},
		}
	})

	t.Run("GRN Short Delivery", func(t *testing.T) {
		grnDoc := processedDoc(document.TypeGoodsReceipt, func(d *transaction.DocumentRef) {
			d.Extracted = &document.ExtractedRecord{
				LineItems: []document.LineItem{
					{Description: "steel bolts", Quantity: floatPtr(90)},
				},
			}
		})
		result := ComputeChecks([]*transaction.DocumentRef{poDoc, grnDoc}, 0.75, 0.02)

		assert.True(t, result.Flags.QtyMismatch)
		assert.Equal(t, transaction.CheckStatusMismatch, checkByType(t, result.Checks, transaction.CheckQuantityMatch).Status)
	})

	t.Run("GRN Full Delivery", func(t *testing.T) {
		grnDoc := processedDoc(document.TypeGoodsReceipt, func(d *transaction.DocumentRef) {
			d.Extracted = &document.ExtractedRecord{
				LineItems: []document.LineItem{
					{Description: "Steel Bolts", Quantity: floatPtr(100)},
				},
			}
		})
		result := ComputeChecks([]*transaction.DocumentRef{poDoc, grnDoc}, 0.75, 0.02)

		assert.False(t, result.Flags.QtyMismatch)
		assert.Equal(t, transaction.CheckStatusOK, checkByType(t, result.Checks, transaction.CheckQuantityMatch).Status)
	})

	t.Run("Unmatched Descriptions Not Compared", func(t *testing.T) {
		grnDoc := processedDoc(document.TypeGoodsReceipt, func(d *transaction.DocumentRef) {
			d.Extracted = &document.ExtractedRecord{
				LineItems: []document.LineItem{
					{Description: "Copper Pipes", Quantity: floatPtr(1)},
				},
			}
		})
		result := ComputeChecks([]*transaction.DocumentRef{poDoc, grnDoc}, 0.75, 0.02)

		assert.False(t, result.Flags.QtyMismatch)
	})
}

func TestComputeChecks_FxOrRegion(t *testing.T) {
	t.Run("Currency Divergence", func(t *testing.T) {
		docs := []*transaction.DocumentRef{
			processedDoc(document.TypePurchaseOrder, func(d *transaction.DocumentRef) {
				d.Country = "DE"
				d.Currency = "EUR"
			}),
			processedDoc(document.TypeInvoice, func(d *transaction.DocumentRef) {
				d.Country = "DE"
				d.Currency = "usd"
				d.InvoiceNumber = "INV-1"
			}),
		}
		result := ComputeChecks(docs, 0.75, 0.02)

		assert.True(t, result.Flags.FxMismatch)
		assert.Equal(t, transaction.CheckStatusMismatch, checkByType(t, result.Checks, transaction.CheckFxOrRegionMatch).Status)
	})

	t.Run("Case Normalized Agreement", func(t *testing.T) {
		docs := []*transaction.DocumentRef{
			processedDoc(document.TypePurchaseOrder, func(d *transaction.DocumentRef) {
				d.Country = "de"
				d.Currency = " EUR "
			}),
			processedDoc(document.TypeInvoice, func(d *transaction.DocumentRef) {
				d.Country = "DE"
				d.Currency = "eur"
				d.InvoiceNumber = "INV-1"
			}),
		}
		result := ComputeChecks(docs, 0.75, 0.02)

		assert.False(t, result.Flags.FxMismatch)
	})
}

func TestComputeChecks_LowConfidence(t *testing.T) {
	docs := []*transaction.DocumentRef{
		processedDoc(document.TypePurchaseOrder, func(d *transaction.DocumentRef) {
			d.Confidence = floatPtr(0.4)
		}),
		processedDoc(document.TypeInvoice, func(d *transaction.DocumentRef) {
			d.InvoiceNumber = "INV-1"
		}),
	}

	result := ComputeChecks(docs, 0.75, 0.02)

	assert.True(t, result.Flags.LowConfidence)
	confidenceCheck := checkByType(t, result.Checks, transaction.CheckLowConfidence)
	assert.Equal(t, transaction.CheckStatusMismatch, confidenceCheck.Status)
	assert.Equal(t, 0.75, confidenceCheck.Details["threshold"])
	assert.Len(t, confidenceCheck.Details["belowThresholdDocumentIds"], 1)
}

func TestComputeChecks_Idempotent(t *testing.T) {
	docs := []*transaction.DocumentRef{
		processedDoc(document.TypePurchaseOrder, func(d *transaction.DocumentRef) {
			d.TotalAmount = floatPtr(250)
			d.Currency = "EUR"
		}),
		processedDoc(document.TypeInvoice, func(d *transaction.DocumentRef) {
			d.TotalAmount = floatPtr(250)
			d.Currency = "EUR"
			d.InvoiceNumber = "INV-1"
		}),
	}

	first := ComputeChecks(docs, 0.75, 0.02)
	second := ComputeChecks(docs, 0.75, 0.02)

	assert.Equal(t, first.Flags, second.Flags)
	assert.Equal(t, first.Checks, second.Checks)
}
