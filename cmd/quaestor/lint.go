package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"corsa-hq/quaestor/pkg/cli"
	"corsa-hq/quaestor/pkg/policy/source"
)

var lintFlags struct {
	file   string
	dir    string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate policy rule files",
	Long: `Validate rule files for syntax and semantic errors.

The lint command loads rule files exactly the way the daemon does:
  - YAML syntax validation
  - Rule structure validation (ids, names, priority bounds)
  - Condition validation (known types, value shapes, ranges)
  - Action validation (approver requirements, escalation targets)

Examples:
  # Lint a single file
  quaestor lint --file rules.yaml

  # Lint a directory
  quaestor lint --dir rules/

  # JSON output for CI/CD
  quaestor lint --file rules.yaml --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "rule file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of rule files")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// LintResult is the validation outcome for a single rule file.
type LintResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func lintRules(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	files, err := collectRuleFiles(lintFlags.file, lintFlags.dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no rule files found")
	}

	results := make([]LintResult, 0, len(files))
	for _, file := range files {
		results = append(results, lintRuleFile(cmd.Context(), file))
	}

	if lintFlags.format == "json" {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, results); err != nil {
			return err
		}
		return lintExitStatus(results)
	}

	printLintResults(os.Stdout, results)
	return lintExitStatus(results)
}

func collectRuleFiles(file, dir string) ([]string, error) {
	var files []string

	if file != "" {
		files = append(files, file)
	}
	if dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				return nil, fmt.Errorf("failed to list rule files: %w", err)
			}
			files = append(files, matches...)
		}
	}

	return files, nil
}

// lintRuleFile loads one file through the same source the daemon uses,
// so lint findings match load-time behavior.
func lintRuleFile(ctx context.Context, path string) LintResult {
	result := LintResult{File: path, Valid: true}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := source.NewFileSource(path, source.NewRegistry(), logger)

	if _, err := src.Load(ctx); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}
	return result
}

func printLintResults(w io.Writer, results []LintResult) {
	totalErrors := 0

	for _, result := range results {
		fmt.Fprintf(w, "Validating %s...\n", result.File)

		if result.Valid {
			fmt.Fprintln(w, "✓ Syntax valid")
			fmt.Fprintln(w, "✓ All rules have valid conditions")
		}
		for _, msg := range result.Errors {
			fmt.Fprintf(w, "✗ Error: %s\n", msg)
			totalErrors++
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  %d file(s), %d error(s)\n", len(results), totalErrors)
}

func lintExitStatus(results []LintResult) error {
	for _, result := range results {
		if !result.Valid {
			return cli.NewCommandError("lint", fmt.Errorf("validation failed"))
		}
	}
	return nil
}
