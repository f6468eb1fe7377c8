package reconcile

import "github.com/procurement-reconciler/internal/domain/transaction"

// ComputeState maps the check flags onto a single transaction state. Failure
// states take priority over waiting states, and waiting states over value
// mismatches; a fully matched document set only reports MATCHED when every
// mismatch flag is clear.
func ComputeState(flags Flags) transaction.State {
	switch {
	case flags.ParseFailed:
		return transaction.StateParseFailed
	case flags.LowConfidence:
		return transaction.StateLowConfidence
	case flags.DuplicateInvoice:
		return transaction.StateDuplicateInvoice
	case !flags.HasPO && (flags.HasInvoice || flags.HasGRN):
		return transaction.StateWaitingForPO
	case flags.HasPO && !flags.HasInvoice && !flags.HasGRN:
		return transaction.StateWaitingForInvoiceAndGRN
	case flags.HasPO && !flags.HasInvoice && flags.HasGRN:
		return transaction.StateWaitingForInvoice
	case flags.HasPO && flags.HasInvoice && !flags.HasGRN:
		return transaction.StateWaitingForGoodsReceipt
	case flags.HasPO && flags.HasInvoice && flags.HasGRN:
		switch {
		case flags.FxMismatch:
			return transaction.StateFxOrRegionMismatch
		case flags.QtyMismatch:
			return transaction.StateQtyMismatch
		case flags.AmountMismatch:
			return transaction.StateAmountMismatch
		default:
			return transaction.StateMatched
		}
	default:
		return transaction.StateWaitingForPO
	}
}

// SummarizeIssue renders a state as a short human-readable issue line for
// reports and rollup artifacts
func SummarizeIssue(state transaction.State) string {
	switch state {
	case transaction.StateMatched:
		return "All checks passed"
	case transaction.StateParseFailed:
		return "At least one document failed extraction"
	case transaction.StateLowConfidence:
		return "One or more extracted documents have low confidence"
	case transaction.StateDuplicateInvoice:
		return "Duplicate invoice number detected"
	case transaction.StateWaitingForPO:
		return "Invoice/GRN exists but PO is missing"
	case transaction.StateWaitingForInvoice:
		return "PO and GRN present; invoice is missing"
	case transaction.StateWaitingForGoodsReceipt:
		return "PO and invoice present; GRN is missing"
	case transaction.StateWaitingForInvoiceAndGRN:
		return "PO present; invoice and GRN missing"
	case transaction.StateFxOrRegionMismatch:
		return "Country or currency mismatch across documents"
	case transaction.StateQtyMismatch:
		return "Goods receipt quantity is less than PO quantity"
	case transaction.StateAmountMismatch:
		return "Invoice total differs from PO total"
	default:
		return "Pending reconciliation"
	}
}
