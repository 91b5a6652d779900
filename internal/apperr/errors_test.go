package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", &ValidationError{Message: "jurisdiction is required"}, http.StatusBadRequest},
		{"not found", &NotFoundError{Kind: "job", ID: "abc"}, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", &NotFoundError{Kind: "job", ID: "abc"}), http.StatusNotFound},
		{"configuration", &ConfigurationError{Jurisdiction: "kern", Reason: "no rule set"}, http.StatusUnprocessableEntity},
		{"store unavailable", &StoreUnavailableError{Store: "batch store"}, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUnwrapChains(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("apply: %w", &StoreUnavailableError{Store: "display store", Cause: cause})

	if !IsStoreUnavailable(err) {
		t.Fatal("expected StoreUnavailableError in chain")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if IsDocumentNotFound(err) {
		t.Error("did not expect DocumentNotFoundError")
	}
}

func TestErrorMessages(t *testing.T) {
	err := &DocumentNotFoundError{Store: "display store", CaseID: "42", DocumentPath: "orange/2024/complaint.pdf"}
	if !strings.Contains(err.Error(), "orange/2024/complaint.pdf") {
		t.Errorf("expected document path in message, got %q", err.Error())
	}

	cfg := &ConfigurationError{Jurisdiction: "kern", Reason: "no rule set", Cause: errors.New("file missing")}
	if !strings.Contains(cfg.Error(), "kern") || !strings.Contains(cfg.Error(), "file missing") {
		t.Errorf("unexpected message %q", cfg.Error())
	}
}
