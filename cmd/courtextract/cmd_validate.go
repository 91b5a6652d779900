package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/liamcoop/courtextract/extraction"
	"github.com/liamcoop/courtextract/patterns"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check rule files without loading them into a service",
	Long: `Validate parses each rule file, checks it against the rule schema and
compiles its expressions and conditions. It reports every broken file and
exits non-zero if any failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conditions, err := extraction.NewConditionCompiler()
		if err != nil {
			return err
		}

		failed := 0
		for _, path := range args {
			n, err := validateFile(cmd, path, conditions)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%d rules)\n", path, n)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d rule files invalid", failed, len(args))
		}
		return nil
	},
}

func validateFile(cmd *cobra.Command, path string, conditions *extraction.ConditionCompiler) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	set, err := patterns.DecodeRuleSet(data)
	if err != nil {
		return 0, err
	}
	if set.Jurisdiction == "" {
		set.Jurisdiction = trimExt(filepath.Base(path))
	}

	store, err := patterns.NewInMemoryPatternStore(set)
	if err != nil {
		return 0, err
	}
	loaded, err := store.Load(cmd.Context(), set.Jurisdiction)
	if err != nil {
		return 0, err
	}
	if _, err := extraction.Compile(loaded, conditions); err != nil {
		return 0, err
	}
	if want := trimExt(filepath.Base(path)); patterns.NormalizeJurisdiction(set.Jurisdiction) != want {
		return 0, errors.New("jurisdiction " + set.Jurisdiction + " does not match file name")
	}
	return len(loaded.Rules), nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
