package rawfiles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const pdfPlaceholderText = "[PDF extraction not implemented in MVP. Route to manual review if critical fields are missing.]"

// TextReader turns a scanned file into the raw text handed to extraction
type TextReader struct{}

func NewTextReader() *TextReader {
	return &TextReader{}
}

// ReadText returns the document text for a supported file. PDF content is not
// parsed yet; a placeholder is returned so extraction can route the document
// to manual review when critical fields are missing.
func (r *TextReader) ReadText(sourcePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(sourcePath))

	switch ext {
	case ".txt", ".md":
		content, err := os.ReadFile(sourcePath)
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", sourcePath, err)
		}
		return string(content), nil
	case ".pdf":
		return pdfPlaceholderText, nil
	default:
		return "", fmt.Errorf("unsupported file extension: %s", ext)
	}
}
