// Package apperr defines the error kinds shared by the extraction, job and
// store packages. Callers match them with errors.As or the Is* helpers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationError reports a missing or malformed rule set.
type ConfigurationError struct {
	Jurisdiction string
	Reason       string
	Cause        error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error for jurisdiction %q: %s", e.Jurisdiction, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// ExtractionError reports a document that cannot be processed at all, such as
// empty text. A field that simply has no match is not an ExtractionError.
type ExtractionError struct {
	DocumentID string
	Reason     string
	Cause      error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extraction failed for document %q: %s", e.DocumentID, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// DocumentNotFoundError reports that a store has no entry for the target document.
type DocumentNotFoundError struct {
	Store        string
	CaseID       string
	DocumentPath string
}

func (e *DocumentNotFoundError) Error() string {
	if e.CaseID == "" {
		return fmt.Sprintf("%s: no document entry with path %q", e.Store, e.DocumentPath)
	}
	return fmt.Sprintf("%s: case %q has no document entry with path %q", e.Store, e.CaseID, e.DocumentPath)
}

// StoreUnavailableError reports a connectivity or write failure of one store.
type StoreUnavailableError struct {
	Store string
	Cause error
}

func (e *StoreUnavailableError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s unavailable", e.Store)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Store, e.Cause)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Cause }

// NotFoundError reports an unknown identifier, e.g. a job id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ValidationError reports a malformed request or configuration value.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// IsConfiguration reports whether err wraps a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsExtraction reports whether err wraps an ExtractionError.
func IsExtraction(err error) bool {
	var target *ExtractionError
	return errors.As(err, &target)
}

// IsDocumentNotFound reports whether err wraps a DocumentNotFoundError.
func IsDocumentNotFound(err error) bool {
	var target *DocumentNotFoundError
	return errors.As(err, &target)
}

// IsStoreUnavailable reports whether err wraps a StoreUnavailableError.
func IsStoreUnavailable(err error) bool {
	var target *StoreUnavailableError
	return errors.As(err, &target)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err), IsDocumentNotFound(err):
		return http.StatusNotFound
	case IsConfiguration(err):
		return http.StatusUnprocessableEntity
	case IsStoreUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
