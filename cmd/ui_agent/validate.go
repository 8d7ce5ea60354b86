package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/ui-builder/internal/observability"
	"github.com/jonathan/ui-builder/internal/validation"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var (
		componentType string
		fix           bool
		rules         []string
		outPath       string
		jsonOutput    bool
		minScore      float64
	)
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Score a component for accessibility, performance and code quality",
		Long: `Validates a React (.jsx/.tsx) or HTML file and prints the category scores, issues and suggestions.

With --fix the mechanical fixes are applied and the result written back (or to --out). Extracted inline styles go to a .css file next to it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			source := string(data)
			if componentType == "" {
				componentType = componentTypeFor(path)
			}

			out := cmd.OutOrStdout()
			if fix {
				result, err := validation.ApplyFixes(source, componentType, rules)
				if err != nil {
					return err
				}
				target := path
				if outPath != "" {
					target = outPath
				}
				if err := os.WriteFile(target, []byte(result.Source), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", target, err)
				}
				if result.Styles != "" {
					css := strings.TrimSuffix(target, filepath.Ext(target)) + ".css"
					if err := os.WriteFile(css, []byte(result.Styles), 0o644); err != nil {
						return fmt.Errorf("failed to write %s: %w", css, err)
					}
				}
				if !jsonOutput {
					_, _ = fmt.Fprintf(out, "Applied fixes: %s\n", strings.Join(result.Applied, ", "))
				}
				source = result.Source
			}

			report, err := validation.Validate(source, componentType)
			if err != nil {
				return err
			}
			if jsonOutput {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				observability.NewPrinter(out).PrintValidationReport(report)
				if root.verbose {
					for _, s := range validation.Suggestions(report, source) {
						_, _ = fmt.Fprintf(out, "• %s\n", s)
					}
				}
			}

			if minScore > 0 && report.OverallScore() < minScore {
				return fmt.Errorf("overall score %.1f is below %.1f", report.OverallScore(), minScore)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&componentType, "type", "", "Component type: react or html (from the file extension when empty)")
	cmd.Flags().BoolVar(&fix, "fix", false, "Apply mechanical fixes before scoring")
	cmd.Flags().StringSliceVar(&rules, "rules", nil, "Rules to fix (all fixable rules when empty)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the fixed source here instead of in place")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Fail when the overall score is below this value")
	return cmd
}

func componentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "html"
	default:
		return "react"
	}
}
