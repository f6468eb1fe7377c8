package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/procurement-reconciler/internal/domain/document"
)

const heuristicConfidence = 0.4

// HeuristicNote explains a heuristic result inside the record itself so the
// provenance survives into storage and reports.
const HeuristicNote = "Heuristic extraction fallback used because no AI credentials were configured."

var (
	poNumberPattern      = regexp.MustCompile(`(?i)\bPO\s*(?:Number|No\.?|#|Ref(?:erence)?)?\s*[:#-]?\s*([A-Z0-9-]{3,})`)
	invoiceNumberPattern = regexp.MustCompile(`(?i)\b(?:Invoice\s*(?:Number|No\.?|#)|Inv\s*No\.?|Invoice)\s*[:#-]?\s*([A-Z0-9-]{3,})`)
	grnNumberPattern     = regexp.MustCompile(`(?i)\bGRN\s*(?:Number|No\.?|#)?\s*[:#-]?\s*([A-Z0-9-]{3,})`)
	vendorPattern        = regexp.MustCompile(`(?i)\b(?:Vendor|Supplier)\s*(?:Name|Id|ID|code|Code)?\s*[:=-]\s*([^\n]+)`)
	countryPattern       = regexp.MustCompile(`(?i)\bCountry\s*[:=-]\s*([A-Za-z]{2,3})\b`)
	currencyPattern      = regexp.MustCompile(`(?i)\bCurrency\s*[:=-]\s*([A-Za-z]{3})\b`)
	totalPattern         = regexp.MustCompile(`(?i)\b(?:Grand\s*Total|Invoice\s*Total|TOTAL\s*DUE|Total\s*Amount|TOTAL)\s*[:=-]?\s*(?:[A-Za-z]{3}\s*)?([0-9,]+(?:\.\d{1,2})?)`)
	taxPattern           = regexp.MustCompile(`(?i)\b(?:Tax|GST|VAT|MwSt)\s*(?:\d+(?:\.\d+)?%?)?\s*[:=-]?\s*(?:[A-Za-z]{3}\s*)?([0-9,]+(?:\.\d{1,2})?)`)
	docDatePattern       = regexp.MustCompile(`(?i)\b(?:Date|Invoice Date|PO Date|GRN Date|Doc dt)\s*[:=-]\s*([^\n]+)`)
	dueDatePattern       = regexp.MustCompile(`(?i)\b(?:Due Date|Payment Due Date)\s*[:=-]\s*([^\n]+)`)

	numberNoisePattern = regexp.MustCompile(`[A-Za-z$€£₹]`)
)

func firstGroup(pattern *regexp.Regexp, text string) string {
	if m := pattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// parseLooseNumber reads an amount that may carry grouping separators or a
// currency marker. Returns nil when no finite number remains.
func parseLooseNumber(value string) *float64 {
	if value == "" {
		return nil
	}
	cleaned := strings.NewReplacer(",", "", " ", "").Replace(value)
	cleaned = numberNoisePattern.ReplaceAllString(cleaned, "")
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

// InferDocType guesses the document kind from keyword hits in the raw text
func InferDocType(rawText string) document.Type {
	text := strings.ToLower(rawText)
	switch {
	case strings.Contains(text, "goods receipt") || strings.Contains(text, "grn"):
		return document.TypeGoodsReceipt
	case strings.Contains(text, "invoice") || strings.Contains(text, "rechnung"):
		return document.TypeInvoice
	case strings.Contains(text, "purchase order") || strings.Contains(text, "po number") || strings.Contains(text, "po#"):
		return document.TypePurchaseOrder
	default:
		return document.TypeOther
	}
}

// HeuristicExtract builds a record from regular-expression field probes. Used
// whenever the AI completer is unavailable; results carry a fixed reduced
// confidence and never include line items.
func HeuristicExtract(rawText string) *document.ExtractedRecord {
	return &document.ExtractedRecord{
		DocType:       InferDocType(rawText),
		PONumber:      firstGroup(poNumberPattern, rawText),
		InvoiceNumber: firstGroup(invoiceNumberPattern, rawText),
		GRNNumber:     firstGroup(grnNumberPattern, rawText),
		VendorName:    firstGroup(vendorPattern, rawText),
		Country:       strings.ToUpper(firstGroup(countryPattern, rawText)),
		Currency:      strings.ToUpper(firstGroup(currencyPattern, rawText)),
		DocDate:       NormalizeDate(firstGroup(docDatePattern, rawText)),
		DueDate:       NormalizeDate(firstGroup(dueDatePattern, rawText)),
		TotalAmount:   parseLooseNumber(firstGroup(totalPattern, rawText)),
		TaxAmount:     parseLooseNumber(firstGroup(taxPattern, rawText)),
		LineItems:     []document.LineItem{},
		Confidence:    heuristicConfidence,
		Notes:         HeuristicNote,
	}
}
