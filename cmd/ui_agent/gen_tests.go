package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/ui-builder/internal/observability"
	"github.com/jonathan/ui-builder/internal/testgen"
	"github.com/jonathan/ui-builder/internal/types"
)

func newGenTestsCmd(root *rootOptions) *cobra.Command {
	var (
		componentName string
		testTypes     []string
		coverage      float64
		outDir        string
		jsonOutput    bool
	)
	cmd := &cobra.Command{
		Use:   "gen-tests <file>",
		Short: "Generate a test suite for a component",
		Long:  `Generates unit, integration and accessibility tests for a React component and prints the estimated coverage. The estimate is derived from the component's structure, not measured.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if componentName == "" {
				componentName = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			opts := testgen.Options{ComponentName: componentName, CoverageTarget: coverage}
			for _, t := range testTypes {
				opts.TestTypes = append(opts.TestTypes, types.TestType(t))
			}

			suite, err := testgen.Generate(string(data), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				if err := writeJSON(out, suite); err != nil {
					return err
				}
			} else {
				observability.NewPrinter(out).PrintTestSuite(suite)
				if root.verbose {
					for _, s := range suite.Suggestions {
						_, _ = fmt.Fprintf(out, "• %s\n", s)
					}
				}
			}

			if outDir == "" {
				return nil
			}
			files := make([]types.ProjectFile, 0, len(suite.Files))
			for _, f := range suite.Files {
				files = append(files, types.ProjectFile{Path: f.Filename, Content: f.Content})
			}
			return writeProjectFiles(outDir, files)
		},
	}
	cmd.Flags().StringVarP(&componentName, "name", "n", "", "Component name (from the file name when empty)")
	cmd.Flags().StringSliceVar(&testTypes, "types", nil, "Test types: unit, integration, accessibility (all when empty)")
	cmd.Flags().Float64Var(&coverage, "coverage", 0, "Coverage target between 0.6 and 1.0 (0.9 when unset)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write the test files to")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the suite as JSON")
	return cmd
}
