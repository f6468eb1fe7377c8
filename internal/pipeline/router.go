package pipeline

import "strings"

// BuildTransactionKey derives the grouping key for a document. Documents
// carrying a PO number group under it; documents without one get a synthetic
// key from their content hash so they never collide with real transactions.
func BuildTransactionKey(poNumber, sha256 string) string {
	normalized := strings.TrimSpace(poNumber)
	if normalized != "" {
		return normalized
	}
	return "UNKNOWN-" + strings.ToUpper(sha256[:8])
}
