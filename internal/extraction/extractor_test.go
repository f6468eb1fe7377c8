package extraction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/procurement-reconciler/internal/domain/document"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const validResponse = `{
  "docType": "INVOICE",
  "poNumber": " PO-1 ",
  "invoiceNumber": "INV-1",
  "grnNumber": "",
  "vendorName": "Acme",
  "vendorId": "V-9",
  "country": "de",
  "currency": "eur",
  "docDate": "5/3/2024",
  "dueDate": "",
  "totalAmount": 120.5,
  "taxAmount": null,
  "lineItems": [{"description": " Widgets ", "quantity": 3, "unitPrice": 40, "lineTotal": 120}],
  "confidence": 0.92,
  "notes": "clean scan"
}`

func TestExtractor_NilCompleterUsesHeuristic(t *testing.T) {
	extractor := NewExtractor(nil, testLogger())

	record, err := extractor.Extract(context.Background(), Input{
		RawText:  "INVOICE\nInvoice No: INV-77\nCurrency: USD",
		FileName: "inv77.txt",
	})

	require.NoError(t, err)
	assert.Equal(t, document.TypeInvoice, record.DocType)
	assert.Equal(t, "INV-77", record.InvoiceNumber)
	assert.Equal(t, 0.4, record.Confidence)
	assert.Equal(t, HeuristicNote, record.Notes)
}

func TestExtractor_HappyPath(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(validResponse, nil).Once()

	extractor := NewExtractor(completer, testLogger())
	record, err := extractor.Extract(context.Background(), Input{RawText: "...", FileName: "inv.txt"})

	require.NoError(t, err)
	assert.Equal(t, document.TypeInvoice, record.DocType)
	assert.Equal(t, "PO-1", record.PONumber)
	assert.Equal(t, "DE", record.Country)
	assert.Equal(t, "EUR", record.Currency)
	assert.Equal(t, "2024-03-05", record.DocDate)
	require.Len(t, record.LineItems, 1)
	assert.Equal(t, "Widgets", record.LineItems[0].Description)
	assert.Equal(t, 0.92, record.Confidence)
	completer.AssertExpectations(t)
}

func TestExtractor_StripsCodeFence(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).
		Return("```json\n"+validResponse+"\n```", nil).Once()

	extractor := NewExtractor(completer, testLogger())
	record, err := extractor.Extract(context.Background(), Input{RawText: "...", FileName: "inv.txt"})

	require.NoError(t, err)
	assert.Equal(t, "INV-1", record.InvoiceNumber)
	completer.AssertExpectations(t)
}

func TestExtractor_RepairsMalformedJSON(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(`{"docType": "INVOICE",`, nil).Once()
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return len(prompt) > 0
	})).Return(validResponse, nil).Once()

	extractor := NewExtractor(completer, testLogger())
	record, err := extractor.Extract(context.Background(), Input{RawText: "...", FileName: "inv.txt"})

	require.NoError(t, err)
	assert.Equal(t, "INV-1", record.InvoiceNumber)
	completer.AssertNumberOfCalls(t, "Complete", 2)
}

func TestExtractor_RepairsInvalidSchema(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(`{"docType": "RECEIPT"}`, nil).Once()
	completer.On("Complete", mock.Anything, mock.Anything).Return(validResponse, nil).Once()

	extractor := NewExtractor(completer, testLogger())
	record, err := extractor.Extract(context.Background(), Input{RawText: "...", FileName: "inv.txt"})

	require.NoError(t, err)
	assert.Equal(t, document.TypeInvoice, record.DocType)
	completer.AssertNumberOfCalls(t, "Complete", 2)
}

func TestExtractor_RepairFailureSurfaces(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("not json", nil).Twice()

	extractor := NewExtractor(completer, testLogger())
	record, err := extractor.Extract(context.Background(), Input{RawText: "...", FileName: "inv.txt"})

	assert.Nil(t, record)
	assert.Error(t, err)
	completer.AssertNumberOfCalls(t, "Complete", 2)
}

func TestExtractor_CompletionErrorTriggersRepairWithPrompt(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("upstream timeout")).Once()
	completer.On("Complete", mock.Anything, mock.Anything).Return(validResponse, nil).Once()

	extractor := NewExtractor(completer, testLogger())
	record, err := extractor.Extract(context.Background(), Input{RawText: "...", FileName: "inv.txt"})

	require.NoError(t, err)
	assert.Equal(t, "INV-1", record.InvoiceNumber)
	completer.AssertNumberOfCalls(t, "Complete", 2)
}

func TestExtractor_MissingConfidenceDefaults(t *testing.T) {
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).
		Return(`{"docType": "OTHER", "notes": "nothing recognizable"}`, nil).Once()

	extractor := NewExtractor(completer, testLogger())
	record, err := extractor.Extract(context.Background(), Input{RawText: "...", FileName: "memo.txt"})

	require.NoError(t, err)
	assert.Equal(t, 0.5, record.Confidence)
}
