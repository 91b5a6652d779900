package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/liamcoop/courtextract/extraction"
	"github.com/liamcoop/courtextract/patterns"
	"github.com/liamcoop/courtextract/source"
)

var extractFlags struct {
	jurisdiction string
	filingDate   string
	caseID       string
	fields       []string
	pdftotext    string
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract fields from one local document",
	Long: `Extract reads a .txt or .pdf file, applies the jurisdiction's rules and
prints the result as JSON, including every ranked and rejected candidate.

Nothing is written to the stores.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVarP(&extractFlags.jurisdiction, "jurisdiction", "j", "", "Jurisdiction whose rules to apply (required)")
	f.StringVar(&extractFlags.filingDate, "filing-date", "", "Known filing date (YYYY-MM-DD)")
	f.StringVar(&extractFlags.caseID, "case-id", "", "Case id recorded in the result metadata")
	f.StringSliceVar(&extractFlags.fields, "field", nil, "Field to extract (repeatable; default: incident_date, incident_end_date)")
	f.StringVar(&extractFlags.pdftotext, "pdftotext", "", "Path to the pdftotext binary")
	_ = extractCmd.MarkFlagRequired("jurisdiction")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	abs, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	loader := source.NewLoader(source.NewFileFetcher(filepath.Dir(abs)), source.DefaultConverter(extractFlags.pdftotext))
	text, err := loader.Load(ctx, filepath.Base(abs))
	if err != nil {
		return err
	}

	meta := extraction.Metadata{CaseID: extractFlags.caseID}
	if extractFlags.filingDate != "" {
		d, err := extraction.ParseISODate(extractFlags.filingDate)
		if err != nil {
			return fmt.Errorf("invalid --filing-date: %w", err)
		}
		meta.FilingDate = &d
	}

	engine, err := extraction.NewEngine(patterns.NewFileStore(patternsDir))
	if err != nil {
		return err
	}
	res, err := engine.ExtractDocument(ctx, extraction.Document{
		ID:           args[0],
		Jurisdiction: extractFlags.jurisdiction,
		Text:         text,
		Metadata:     meta,
	}, extractFlags.fields...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
