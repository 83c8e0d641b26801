package corpus

import (
	"context"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/siherrmann/graphrag/model"
)

// Extractor reads the pages of a document file.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]model.Page, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, path string) ([]model.Page, error)

func (f ExtractorFunc) Extract(ctx context.Context, path string) ([]model.Page, error) {
	return f(ctx, path)
}

// PDFExtractor extracts the plain text of every page of a PDF file.
type PDFExtractor struct{}

// Extract returns the non empty pages of the PDF in page order.
// Corrupt files fail with an extraction error.
func (PDFExtractor) Extract(ctx context.Context, path string) (pages []model.Page, err error) {
	// The pdf reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = model.NewExtractionError(path, panicError{r})
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, model.NewExtractionError(path, err)
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, model.NewExtractionError(path, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, model.Page{Number: i, Text: text})
	}
	return pages, nil
}

// TextExtractor reads plain text files as a single page.
type TextExtractor struct{}

func (TextExtractor) Extract(ctx context.Context, path string) ([]model.Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewExtractionError(path, err)
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return nil, nil
	}
	return []model.Page{{Number: 1, Text: text}}, nil
}

type panicError struct {
	value any
}

func (p panicError) Error() string {
	if err, ok := p.value.(error); ok {
		return "panic: " + err.Error()
	}
	if s, ok := p.value.(string); ok {
		return "panic: " + s
	}
	return "panic while reading file"
}
