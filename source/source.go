// Package source fetches court documents and turns them into plain text.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/liamcoop/courtextract/internal/apperr"
)

// maxDocumentBytes bounds a single download.
const maxDocumentBytes = 64 << 20

// Fetcher downloads the raw bytes of a document by path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Converter turns raw document bytes into text. name is the document path,
// used to pick a format.
type Converter interface {
	Text(ctx context.Context, name string, data []byte) (string, error)
}

// Loader combines a Fetcher and a Converter.
type Loader struct {
	fetcher   Fetcher
	converter Converter
}

func NewLoader(f Fetcher, c Converter) *Loader {
	return &Loader{fetcher: f, converter: c}
}

// Load returns the text of a document. Any failure is an ExtractionError,
// since a document that cannot be read cannot be extracted.
func (l *Loader) Load(ctx context.Context, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", &apperr.ExtractionError{Reason: "document path is empty"}
	}

	data, err := l.fetcher.Fetch(ctx, path)
	if err != nil {
		return "", &apperr.ExtractionError{DocumentID: path, Reason: "download failed", Cause: err}
	}

	text, err := l.converter.Text(ctx, path, data)
	if err != nil {
		return "", &apperr.ExtractionError{DocumentID: path, Reason: "text conversion failed", Cause: err}
	}
	return text, nil
}

func tooLarge(path string, n int64) error {
	return fmt.Errorf("document %s exceeds %d bytes (read %d)", path, maxDocumentBytes, n)
}
