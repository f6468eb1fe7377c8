// Package extraction turns raw document text into a structured record, either
// through an AI completion with schema validation and a single repair attempt
// per failure mode, or through a regex heuristic when no completer is wired.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/procurement-reconciler/internal/domain/document"
)

// Completer produces one model completion for a prompt
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Input carries a document's text plus context for a second-pass extraction
type Input struct {
	RawText  string
	FileName string
	// POContext, when set, is included in the prompt so invoice extraction can
	// align field values with an already-known purchase order.
	POContext *document.ExtractedRecord
}

// Extractor drives the extraction flow. A nil completer means heuristic-only
// operation.
type Extractor struct {
	completer Completer
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewExtractor(completer Completer, logger *slog.Logger) *Extractor {
	return &Extractor{
		completer: completer,
		validate:  validator.New(),
		logger:    logger,
	}
}

var fenceOpenPattern = regexp.MustCompile("^```[a-zA-Z]*\n?")

// stripCodeFence removes a surrounding markdown code fence, if present
func stripCodeFence(input string) string {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "```") && strings.HasSuffix(trimmed, "```") {
		trimmed = fenceOpenPattern.ReplaceAllString(trimmed, "")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}

// extractionPayload mirrors ExtractedRecord but keeps confidence nullable so a
// missing value can take the documented default rather than zero
type extractionPayload struct {
	DocType       string              `json:"docType"`
	PONumber      string              `json:"poNumber"`
	InvoiceNumber string              `json:"invoiceNumber"`
	GRNNumber     string              `json:"grnNumber"`
	VendorName    string              `json:"vendorName"`
	VendorID      string              `json:"vendorId"`
	Country       string              `json:"country"`
	Currency      string              `json:"currency"`
	DocDate       string              `json:"docDate"`
	DueDate       string              `json:"dueDate"`
	TotalAmount   *float64            `json:"totalAmount"`
	TaxAmount     *float64            `json:"taxAmount"`
	LineItems     []document.LineItem `json:"lineItems"`
	Confidence    *float64            `json:"confidence"`
	Notes         string              `json:"notes"`
}

const defaultConfidence = 0.5

func (e *Extractor) normalize(payload extractionPayload) *document.ExtractedRecord {
	confidence := defaultConfidence
	if payload.Confidence != nil {
		confidence = math.Max(0, math.Min(1, *payload.Confidence))
	}

	lineItems := make([]document.LineItem, 0, len(payload.LineItems))
	for _, item := range payload.LineItems {
		lineItems = append(lineItems, document.LineItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}

	return &document.ExtractedRecord{
		DocType:       document.Type(strings.TrimSpace(payload.DocType)),
		PONumber:      strings.TrimSpace(payload.PONumber),
		InvoiceNumber: strings.TrimSpace(payload.InvoiceNumber),
		GRNNumber:     strings.TrimSpace(payload.GRNNumber),
		VendorName:    strings.TrimSpace(payload.VendorName),
		VendorID:      strings.TrimSpace(payload.VendorID),
		Country:       strings.ToUpper(strings.TrimSpace(payload.Country)),
		Currency:      strings.ToUpper(strings.TrimSpace(payload.Currency)),
		DocDate:       NormalizeDate(payload.DocDate),
		DueDate:       NormalizeDate(payload.DueDate),
		TotalAmount:   payload.TotalAmount,
		TaxAmount:     payload.TaxAmount,
		LineItems:     lineItems,
		Confidence:    confidence,
		Notes:         strings.TrimSpace(payload.Notes),
	}
}

func buildExtractionPrompt(input Input) string {
	poContext := ""
	if input.POContext != nil {
		if contextJSON, err := json.Marshal(input.POContext); err == nil {
			poContext = "PO context JSON:\n" + string(contextJSON)
		}
	}

	lines := []string{
		"You are an AP procurement document extraction engine.",
		"Extract structured fields from the following raw document text.",
		"Return JSON only (no markdown, no prose), with this shape:",
		"{",
		`  "docType": "PURCHASE_ORDER"|"INVOICE"|"GOODS_RECEIPT"|"OTHER",`,
		`  "poNumber": "",`,
		`  "invoiceNumber": "",`,
		`  "grnNumber": "",`,
		`  "vendorName": "",`,
		`  "vendorId": "",`,
		`  "country": "",`,
		`  "currency": "",`,
		`  "docDate": "YYYY-MM-DD or empty",`,
		`  "dueDate": "YYYY-MM-DD or empty",`,
		`  "totalAmount": number|null,`,
		`  "taxAmount": number|null,`,
		`  "lineItems": [{"description": "", "quantity": number|null, "unitPrice": number|null, "lineTotal": number|null}],`,
		`  "confidence": 0..1,`,
		`  "notes": "short note"`,
		"}",
		"Rules:",
		"- If missing, use empty string for text fields and null for numeric fields.",
		"- Normalize dates to YYYY-MM-DD if possible.",
		"- Keep confidence low for ambiguous or OCR-noisy text.",
		"File name: " + input.FileName,
	}
	if poContext != "" {
		lines = append(lines, poContext)
	}
	lines = append(lines, "Document text:", input.RawText)

	return strings.Join(lines, "\n")
}

func buildRepairPrompt(badPayload string) string {
	return strings.Join([]string{
		"Fix this JSON so it is strictly valid and follows the required extraction schema.",
		"Return only corrected JSON, no markdown.",
		badPayload,
	}, "\n\n")
}

func (e *Extractor) complete(ctx context.Context, prompt string) (string, error) {
	response, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to obtain completion: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return "", fmt.Errorf("model returned an empty response")
	}
	return response, nil
}

// Extract produces a structured record for the given text. When the model's
// first answer is not parseable JSON, one repair completion is requested; when
// the parsed payload fails schema validation, one more repair completion is
// requested. Further failures surface as errors and the document is marked
// failed by the caller.
func (e *Extractor) Extract(ctx context.Context, input Input) (*document.ExtractedRecord, error) {
	if e.completer == nil {
		return HeuristicExtract(input.RawText), nil
	}

	prompt := buildExtractionPrompt(input)

	var payload extractionPayload
	firstResponse, err := e.complete(ctx, prompt)
	if err == nil {
		err = json.Unmarshal([]byte(stripCodeFence(firstResponse)), &payload)
	}
	if err != nil {
		e.logger.Warn("first extraction response unusable, requesting repair",
			slog.String("file_name", input.FileName), slog.String("error", err.Error()))

		repairInput := firstResponse
		if repairInput == "" {
			repairInput = prompt
		}
		repairResponse, repairErr := e.complete(ctx, buildRepairPrompt(repairInput))
		if repairErr != nil {
			return nil, repairErr
		}
		payload = extractionPayload{}
		if err := json.Unmarshal([]byte(stripCodeFence(repairResponse)), &payload); err != nil {
			return nil, fmt.Errorf("failed to parse repaired extraction response: %w", err)
		}
	}

	record := e.normalize(payload)
	if err := e.validate.Struct(record); err == nil {
		return record, nil
	}

	e.logger.Warn("extraction payload failed schema validation, requesting repair",
		slog.String("file_name", input.FileName), slog.String("doc_type", string(record.DocType)))

	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload for repair: %w", err)
	}
	repairResponse, err := e.complete(ctx, buildRepairPrompt(string(rawPayload)))
	if err != nil {
		return nil, err
	}

	payload = extractionPayload{}
	if err := json.Unmarshal([]byte(stripCodeFence(repairResponse)), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse repaired extraction response: %w", err)
	}
	record = e.normalize(payload)
	if err := e.validate.Struct(record); err != nil {
		return nil, fmt.Errorf("extraction payload failed schema validation after repair: %w", err)
	}
	return record, nil
}
