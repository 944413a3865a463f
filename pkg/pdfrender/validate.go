package pdfrender

import (
	"bytes"
	"errors"
	"fmt"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrEmptyDocument is returned when a PDF has no pages.
var ErrEmptyDocument = errors.New("pdfrender: document has no pages")

// PageCount parses data as a PDF and returns its page count.
func PageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyDocument
	}
	n, err := pdfapi.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	return n, nil
}

// Validate checks that data is a parseable PDF with at least one page.
func Validate(data []byte) error {
	n, err := PageCount(data)
	if err != nil {
		return err
	}
	if n < 1 {
		return ErrEmptyDocument
	}
	return nil
}
