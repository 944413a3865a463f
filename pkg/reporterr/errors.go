// Package reporterr defines the error taxonomy of the rendering pipeline.
//
// Every stage fails with exactly one of four typed errors so callers can
// tell "your data was incomplete" apart from "the renderer is broken":
//
//   - MissingDataError: required report or engagement absent (client error)
//   - TemplateCompilationError: template missing or invalid (server error, not retryable)
//   - RenderError: headless browser session failed (transient, retry the pipeline)
//   - FileStoreError: disk or permission failure on save/delete (server error)
//
// Each typed error matches its sentinel with errors.Is and exposes the
// underlying cause through Unwrap.
package reporterr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindMissingData         Kind = "missing_data"
	KindTemplateCompilation Kind = "template_compilation"
	KindRender              Kind = "render"
	KindFileStore           Kind = "file_store"
	KindUnknown             Kind = "internal"
)

// Sentinel errors for each kind.
// Callers should use errors.Is() to check for these.
var (
	ErrMissingData         = errors.New("reporterr: missing data")
	ErrTemplateCompilation = errors.New("reporterr: template compilation failed")
	ErrRender              = errors.New("reporterr: render failed")
	ErrFileStore           = errors.New("reporterr: file store failure")
)

// MissingDataError reports that a required input was absent or unusable.
type MissingDataError struct {
	// Field names the missing input ("report", "engagement", "variant").
	Field string
	// Reason is optional detail safe to show to the caller.
	Reason string
	Cause  error
}

// MissingData returns a MissingDataError for field.
func MissingData(field, reason string) *MissingDataError {
	return &MissingDataError{Field: field, Reason: reason}
}

func (e *MissingDataError) Error() string {
	msg := "missing data: " + e.Field
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MissingDataError) Unwrap() error        { return e.Cause }
func (e *MissingDataError) Is(target error) bool { return target == ErrMissingData }
func (e *MissingDataError) Kind() Kind           { return KindMissingData }

func (e *MissingDataError) publicMessage() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return e.Field + " is required"
}

// TemplateCompilationError reports a missing, unparsable or failing template.
type TemplateCompilationError struct {
	Template string
	Cause    error
}

func (e *TemplateCompilationError) Error() string {
	return fmt.Sprintf("template %q: compilation failed: %v", e.Template, e.Cause)
}

func (e *TemplateCompilationError) Unwrap() error        { return e.Cause }
func (e *TemplateCompilationError) Is(target error) bool { return target == ErrTemplateCompilation }
func (e *TemplateCompilationError) Kind() Kind           { return KindTemplateCompilation }
func (e *TemplateCompilationError) publicMessage() string {
	return "document template could not be compiled"
}

// RenderError reports a headless browser session failure.
type RenderError struct {
	// Phase is the session step that failed: launch, load, idle, print, validate.
	Phase string
	Cause error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Phase, e.Cause)
}

func (e *RenderError) Unwrap() error        { return e.Cause }
func (e *RenderError) Is(target error) bool { return target == ErrRender }
func (e *RenderError) Kind() Kind           { return KindRender }
func (e *RenderError) publicMessage() string {
	return "document renderer failed; the request may be retried"
}

// FileStoreError reports a storage failure on save, open or delete.
type FileStoreError struct {
	Op       string
	Identity string
	Cause    error
}

func (e *FileStoreError) Error() string {
	if e.Identity == "" {
		return fmt.Sprintf("file store %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("file store %s %q: %v", e.Op, e.Identity, e.Cause)
}

func (e *FileStoreError) Unwrap() error        { return e.Cause }
func (e *FileStoreError) Is(target error) bool { return target == ErrFileStore }
func (e *FileStoreError) Kind() Kind           { return KindFileStore }
func (e *FileStoreError) publicMessage() string {
	return "generated document storage failed"
}

// kinded is implemented by every taxonomy error.
type kinded interface {
	error
	Kind() Kind
	publicMessage() string
}

// Compile-time interface checks.
var (
	_ kinded = (*MissingDataError)(nil)
	_ kinded = (*TemplateCompilationError)(nil)
	_ kinded = (*RenderError)(nil)
	_ kinded = (*FileStoreError)(nil)
)

// KindOf returns the kind of the first taxonomy error in err's chain,
// or KindUnknown.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// IsRetryable reports whether re-running the whole pipeline may succeed.
// Only browser session failures are transient.
func IsRetryable(err error) bool {
	return KindOf(err) == KindRender
}

// HTTPStatus maps err to the status code the gateway responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindMissingData:
		return http.StatusBadRequest
	case KindRender:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a message safe to show to API callers. Causes,
// paths and stack details are never included.
func PublicMessage(err error) string {
	var k kinded
	if errors.As(err, &k) {
		return k.publicMessage()
	}
	return "internal error"
}
