package steps

import (
	"context"

	"github.com/jonathan/ui-builder/internal/analysis"
	"github.com/jonathan/ui-builder/internal/codegen"
	"github.com/jonathan/ui-builder/internal/deploy"
	"github.com/jonathan/ui-builder/internal/design"
	"github.com/jonathan/ui-builder/internal/job"
	"github.com/jonathan/ui-builder/internal/testgen"
	"github.com/jonathan/ui-builder/internal/types"
	"github.com/jonathan/ui-builder/internal/validation"
)

// AnalyzeStage classifies the prompt.
type AnalyzeStage struct {
	Analyzer analysis.Analyzer
}

func (s *AnalyzeStage) Name() job.StageName { return job.StageAnalyze }

func (s *AnalyzeStage) Run(ctx context.Context, in *Input) (any, error) {
	return s.Analyzer.Analyze(ctx, in.Prompt)
}

// DesignStage turns the analysis into a wireframe.
type DesignStage struct {
	Designer design.Designer
}

func (s *DesignStage) Name() job.StageName { return job.StageDesign }

func (s *DesignStage) Run(ctx context.Context, in *Input) (any, error) {
	var a types.PromptAnalysis
	if err := in.Artifact(job.StageAnalyze, &a); err != nil {
		return nil, err
	}
	return s.Designer.Design(ctx, in.Prompt, &a)
}

// GenerateCodeStage produces the component source. A retry passes the
// previous failure to the generator as a hint.
type GenerateCodeStage struct {
	Generator codegen.Generator
}

func (s *GenerateCodeStage) Name() job.StageName { return job.StageGenerateCode }

func (s *GenerateCodeStage) Run(ctx context.Context, in *Input) (any, error) {
	var a types.PromptAnalysis
	if err := in.Artifact(job.StageAnalyze, &a); err != nil {
		return nil, err
	}
	var w types.Wireframe
	if err := in.Artifact(job.StageDesign, &w); err != nil {
		return nil, err
	}
	req := codegen.Request{
		Prompt:        in.Prompt,
		ComponentName: analysis.ComponentName(&a, in.Options.ComponentName),
		Analysis:      &a,
		Wireframe:     &w,
	}
	if in.Attempt > 1 {
		req.Hint = in.LastError
	}
	return s.Generator.Generate(ctx, req)
}

// ValidateStage scores the generated source.
type ValidateStage struct{}

func (ValidateStage) Name() job.StageName { return job.StageValidate }

func (ValidateStage) Run(_ context.Context, in *Input) (any, error) {
	var code types.GeneratedCode
	if err := in.Artifact(job.StageGenerateCode, &code); err != nil {
		return nil, err
	}
	return validation.Validate(code.Source, code.ComponentType)
}

// GenerateTestsStage builds the test suite for the job's coverage target.
type GenerateTestsStage struct {
	TestTypes []types.TestType
}

func (s GenerateTestsStage) Name() job.StageName { return job.StageGenerateTests }

func (s GenerateTestsStage) Run(_ context.Context, in *Input) (any, error) {
	var code types.GeneratedCode
	if err := in.Artifact(job.StageGenerateCode, &code); err != nil {
		return nil, err
	}
	return testgen.Generate(code.Source, testgen.Options{
		ComponentName:  code.ComponentName,
		TestTypes:      s.TestTypes,
		CoverageTarget: in.Options.CoverageTarget,
	})
}

// Deployer dispatches a bundle to a target.
type Deployer interface {
	Deploy(ctx context.Context, target string, bundle *types.ProjectBundle) (*types.DeploymentResult, error)
}

// DeployStage assembles the project and hands it to the router.
type DeployStage struct {
	Router Deployer
}

func (s *DeployStage) Name() job.StageName { return job.StageDeploy }

func (s *DeployStage) Run(ctx context.Context, in *Input) (any, error) {
	var code types.GeneratedCode
	if err := in.Artifact(job.StageGenerateCode, &code); err != nil {
		return nil, err
	}
	var tests types.TestSuiteReport
	if err := in.Artifact(job.StageGenerateTests, &tests); err != nil {
		return nil, err
	}
	bundle, err := deploy.BuildBundle(&code, &tests, code.ComponentName)
	if err != nil {
		return nil, err
	}
	bundle.ArchiveKey = "bundles/" + in.JobID + "/" + bundle.Name + ".zip"
	return s.Router.Deploy(ctx, in.Options.DeployTarget, bundle)
}

// Pipeline returns the stages in execution order.
func Pipeline(a analysis.Analyzer, d design.Designer, g codegen.Generator, r Deployer) []Stage {
	return []Stage{
		&AnalyzeStage{Analyzer: a},
		&DesignStage{Designer: d},
		&GenerateCodeStage{Generator: g},
		ValidateStage{},
		GenerateTestsStage{TestTypes: types.AllTestTypes},
		&DeployStage{Router: r},
	}
}
