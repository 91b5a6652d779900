package storesync

import (
	"context"
	"strings"

	"github.com/liamcoop/courtextract/extraction"
)

// CatalogQuery selects documents for a batch job.
type CatalogQuery struct {
	Jurisdiction string
	DocumentType string
	From         extraction.Date
	To           extraction.Date
}

func (q CatalogQuery) normalizedType() string {
	t := strings.ToLower(strings.TrimSpace(q.DocumentType))
	t = strings.ReplaceAll(t, `\`, `\\`)
	t = strings.ReplaceAll(t, "%", `\%`)
	return strings.ReplaceAll(t, "_", `\_`)
}

// matches applies the query to one catalog entry, mirroring the SQL filter.
func (q CatalogQuery) matches(jurisdiction string, doc CatalogDocument) bool {
	if doc.DocumentPath == "" || doc.FiledDate == nil {
		return false
	}
	if jurisdiction != q.Jurisdiction {
		return false
	}
	want := strings.ToLower(strings.TrimSpace(q.DocumentType))
	if !strings.Contains(strings.ToLower(doc.Description), want) {
		return false
	}
	return !doc.FiledDate.Before(q.From) && !doc.FiledDate.After(q.To)
}

// CatalogDocument is one document found in the display store.
type CatalogDocument struct {
	CaseID       string           `json:"case_id"`
	DocumentPath string           `json:"document_path"`
	Description  string           `json:"description"`
	FiledDate    *extraction.Date `json:"filed_date,omitempty"`
}

// Catalog lists the documents a batch job should process.
type Catalog interface {
	FindDocuments(ctx context.Context, q CatalogQuery) ([]CatalogDocument, error)
}
