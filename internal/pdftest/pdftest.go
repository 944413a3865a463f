// Package pdftest builds small, valid PDF documents for tests that need
// real renderer output without launching a browser.
package pdftest

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// Document returns an A4 PDF with the given number of pages, each
// carrying title and its page number. pages below 1 is treated as 1.
func Document(title string, pages int) ([]byte, error) {
	if pages < 1 {
		pages = 1
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetFont("Helvetica", "", 12)
	for i := 1; i <= pages; i++ {
		pdf.AddPage()
		pdf.Cell(0, 10, fmt.Sprintf("%s - page %d", title, i))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdftest: %w", err)
	}
	return buf.Bytes(), nil
}

// MustDocument is Document that panics on error.
func MustDocument(title string, pages int) []byte {
	b, err := Document(title, pages)
	if err != nil {
		panic(err)
	}
	return b
}
