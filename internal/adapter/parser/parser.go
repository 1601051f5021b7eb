package parser

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"docqa/internal/domain"
)

// DocumentParser converts raw document bytes to plain text. Plain text and
// markdown pass through after a UTF-8 check; PDF text is extracted page by
// page. Anything else fails with domain.ErrUnsupportedFormat.
type DocumentParser struct{}

func NewDocumentParser() *DocumentParser {
	return &DocumentParser{}
}

func (p *DocumentParser) Parse(raw []byte, contentType string) (string, error) {
	switch normalizeContentType(contentType) {
	case "text/plain", "text/markdown":
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("text is not valid UTF-8: %w", domain.ErrUnsupportedFormat)
		}
		return string(raw), nil
	case "application/pdf":
		return extractPDFText(raw)
	default:
		return "", fmt.Errorf("content type %q: %w", contentType, domain.ErrUnsupportedFormat)
	}
}

func extractPDFText(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %v: %w", err, domain.ErrUnsupportedFormat)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %v: %w", err, domain.ErrUnsupportedFormat)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %v: %w", err, domain.ErrUnsupportedFormat)
	}

	return buf.String(), nil
}

func normalizeContentType(contentType string) string {
	// Drop parameters such as "; charset=utf-8".
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// ContentTypeForPath maps a filename to the content type the parser
// understands, or "" when the extension is unknown.
func ContentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	default:
		return ""
	}
}
