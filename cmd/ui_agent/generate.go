package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/ui-builder/internal/deploy"
	"github.com/jonathan/ui-builder/internal/job"
	"github.com/jonathan/ui-builder/internal/observability"
	"github.com/jonathan/ui-builder/internal/pipeline"
	"github.com/jonathan/ui-builder/internal/types"
)

type generateOptions struct {
	prompt        string
	target        string
	coverage      float64
	componentName string
	outDir        string
	timeout       time.Duration
	jsonOutput    bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Run one generation job locally and print the result",
		Long: `Runs the full pipeline for a single prompt: analyze -> design -> generate_code -> validate -> generate_tests -> deploy (when --target is set).

With --out the runnable project (component, tests, package.json) is written to the directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.prompt = args[0]
			}
			return runGenerate(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "Description of the UI to generate")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "Deployment target (vercel, netlify, render, github_pages, docker)")
	cmd.Flags().Float64Var(&opts.coverage, "coverage", 0, "Coverage target between 0.6 and 1.0 (defaults to DEFAULT_COVERAGE_TARGET)")
	cmd.Flags().StringVarP(&opts.componentName, "name", "n", "", "Component name (derived from the prompt when empty)")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Directory to write the generated project to")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Maximum time to wait for the job")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the final job snapshot as JSON")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	if strings.TrimSpace(opts.prompt) == "" {
		return fmt.Errorf("a prompt is required (argument or --prompt)")
	}
	cfg, err := root.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := newLogger(cfg, false)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	out := cmd.OutOrStdout()
	var progress pipeline.ProgressCallback
	if cfg.Verbose {
		progress = func(ev pipeline.ProgressEvent) {
			if ev.Stage != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s %s\n", ev.JobID[:8], ev.Stage, ev.Message)
			}
		}
	}

	a, err := newApp(ctx, cfg, log, progress)
	if err != nil {
		return err
	}
	defer a.Close()
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
		defer done()
		_ = a.orch.Shutdown(shutdownCtx)
	}()

	req := pipeline.SubmitRequest{
		Prompt:        opts.prompt,
		DeployTarget:  opts.target,
		ComponentName: opts.componentName,
	}
	if cmd.Flags().Changed("coverage") {
		req.CoverageTarget = &opts.coverage
	}
	id, err := a.orch.Submit(ctx, req)
	if err != nil {
		return err
	}

	j, err := waitForJob(ctx, a.orch, id, 50*time.Millisecond)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		if err := writeJSON(out, j); err != nil {
			return err
		}
	} else {
		p := observability.NewPrinter(out)
		p.PrintJob(j)
		if cfg.Verbose {
			p.PrintArtifacts(j)
		} else {
			var report types.ValidationReport
			if ok, err := j.Artifact(job.StageValidate, &report); ok && err == nil {
				p.PrintValidationReport(&report)
			}
			var dep types.DeploymentResult
			if ok, err := j.Artifact(job.StageDeploy, &dep); ok && err == nil {
				p.PrintDeployment(&dep)
			}
		}
	}

	if opts.outDir != "" && j.Status == job.StatusCompleted {
		if err := writeJobProject(j, opts.outDir); err != nil {
			return err
		}
		if !opts.jsonOutput {
			_, _ = fmt.Fprintf(out, "Project written to %s\n", opts.outDir)
		}
	}

	if j.Status != job.StatusCompleted {
		return fmt.Errorf("job %s %s at %s: %s", j.ID, j.Status, j.FailedStage, j.Error)
	}
	return nil
}

// waitForJob polls until the job is terminal. When ctx ends first the job is
// cancelled and the error is returned.
func waitForJob(ctx context.Context, orch *pipeline.Orchestrator, id string, every time.Duration) (*job.Job, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		j, err := orch.GetStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		if j.Terminal() {
			return j, nil
		}
		select {
		case <-ctx.Done():
			_, _ = orch.Cancel(context.Background(), id)
			return nil, fmt.Errorf("waiting for job %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

// writeJobProject writes the project bundle assembled from the job's code
// and tests.
func writeJobProject(j *job.Job, dir string) error {
	var code types.GeneratedCode
	if ok, err := j.Artifact(job.StageGenerateCode, &code); !ok || err != nil {
		return fmt.Errorf("job %s has no generated code", j.ID)
	}
	var suite *types.TestSuiteReport
	var s types.TestSuiteReport
	if ok, err := j.Artifact(job.StageGenerateTests, &s); ok && err == nil {
		suite = &s
	}
	bundle, err := deploy.BuildBundle(&code, suite, code.ComponentName)
	if err != nil {
		return err
	}
	return writeProjectFiles(dir, bundle.Files)
}
