package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// pageBreak separates pages in the extracted text, matching pdftotext/pdfminer output.
const pageBreak = "\n\f"

// TextExtractor converts raw document bytes into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, raw []byte) (string, error)
}

// PDFTextExtractor reads PDF bytes in memory with ledongthuc/pdf. Pages are emitted in
// document order; within a page text follows the content stream order.
type PDFTextExtractor struct {
	logger *slog.Logger
}

// NewPDFTextExtractor creates a PDF text extractor
func NewPDFTextExtractor(logger *slog.Logger) *PDFTextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFTextExtractor{logger: logger}
}

// ExtractText returns the plain text of every page. A blank document yields "".
// Bytes that are not a readable PDF fail with ErrDocumentParse.
func (e *PDFTextExtractor) ExtractText(ctx context.Context, raw []byte) (text string, err error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: empty document", ErrDocumentParse)
	}

	// The reader panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: malformed pdf: %v", ErrDocumentParse, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDocumentParse, err)
	}

	pages := reader.NumPage()
	if pages == 0 {
		return "", fmt.Errorf("%w: document has no pages", ErrDocumentParse)
	}

	var textBuilder strings.Builder
	skipped := 0
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if i > 1 {
			textBuilder.WriteString(pageBreak)
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			skipped++
			e.logger.Warn("failed to extract text from page", "page", i, "error", err)
			continue
		}
		textBuilder.WriteString(pageText)
	}

	if skipped == pages {
		return "", fmt.Errorf("%w: no readable pages", ErrDocumentParse)
	}

	text = textBuilder.String()
	e.logger.Debug("pdf text extracted",
		"pages", pages,
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}
