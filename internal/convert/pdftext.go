// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFTextConverter extracts the plain text layer of a PDF in process.
// Layout is lost; pages are separated by blank lines.
type PDFTextConverter struct{}

// NewPDFTextConverter returns a PDFTextConverter.
func NewPDFTextConverter() *PDFTextConverter {
	return &PDFTextConverter{}
}

// Convert extracts the text of every page of pdfPath. Pages that fail to
// decode are skipped; a document without any text yields ErrNoText.
func (p *PDFTextConverter) Convert(ctx context.Context, pdfPath string) (string, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", fmt.Errorf("reading PDF %s: %w", pdfPath, err)
	}
	return extractText(ctx, data)
}

func extractText(ctx context.Context, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	var pages []string
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return "", fmt.Errorf("%d pages: %w", reader.NumPage(), ErrNoText)
	}
	return strings.Join(pages, "\n\n"), nil
}
