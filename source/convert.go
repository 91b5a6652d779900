package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strings"
	"unicode/utf8"
)

// PlainText accepts UTF-8 text as is.
type PlainText struct{}

func (PlainText) Text(_ context.Context, name string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", name)
	}
	return string(data), nil
}

// PDFToText converts PDFs with the poppler pdftotext binary.
type PDFToText struct {
	// Binary defaults to "pdftotext" on PATH.
	Binary string
}

func (p PDFToText) Text(ctx context.Context, name string, data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", fmt.Errorf("%s is not a PDF", name)
	}

	bin := p.Binary
	if bin == "" {
		bin = "pdftotext"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-layout", "-enc", "UTF-8", "-", "-")
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("pdftotext failed on %s: %s", name, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("failed to run %s: %w", bin, err)
	}
	// pdftotext passes through bytes it cannot map; keep the text usable.
	return strings.ToValidUTF8(stdout.String(), "\uFFFD"), nil
}

// ByExtension picks a converter from the document's file extension. Paths
// without a registered extension use Default.
type ByExtension struct {
	Converters map[string]Converter
	Default    Converter
}

// DefaultConverter handles .pdf through pdftotext and everything else as
// plain text.
func DefaultConverter(pdftotextPath string) ByExtension {
	pdf := PDFToText{Binary: pdftotextPath}
	return ByExtension{
		Converters: map[string]Converter{".pdf": pdf},
		Default:    PlainText{},
	}
}

func (b ByExtension) Text(ctx context.Context, name string, data []byte) (string, error) {
	ext := strings.ToLower(path.Ext(name))
	if c, ok := b.Converters[ext]; ok {
		return c.Text(ctx, name, data)
	}
	if b.Default == nil {
		return "", fmt.Errorf("no converter for %q", ext)
	}
	return b.Default.Text(ctx, name, data)
}
