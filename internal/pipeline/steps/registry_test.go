package steps

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ui-builder/internal/analysis"
	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/codegen"
	"github.com/jonathan/ui-builder/internal/design"
	"github.com/jonathan/ui-builder/internal/job"
	"github.com/jonathan/ui-builder/internal/types"
)

func TestStageRegistry(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, len(job.Sequence()))
	for i, def := range defs {
		assert.Equal(t, job.Sequence()[i], def.Name)
		assert.NotEmpty(t, def.Category)
		for _, dep := range def.Dependencies {
			_, ok := StageRegistry[dep]
			assert.True(t, ok, "dependency %s of %s should be registered", dep, def.Name)
		}
	}
	assert.True(t, StageRegistry[job.StageDeploy].Optional)
	assert.False(t, StageRegistry[job.StageGenerateCode].Optional)
}

func TestStageRegistryCategories(t *testing.T) {
	categories := map[string][]job.StageName{
		CategoryPlanning:   {job.StageAnalyze, job.StageDesign},
		CategoryGeneration: {job.StageGenerateCode},
		CategoryQuality:    {job.StageValidate, job.StageGenerateTests},
		CategoryDelivery:   {job.StageDeploy},
	}
	for category, names := range categories {
		for _, name := range names {
			assert.Equal(t, category, StageRegistry[name].Category, "stage %s", name)
		}
	}
}

func TestDependencyError(t *testing.T) {
	err := &DependencyError{Stage: job.StageValidate, MissingDependencies: []job.StageName{job.StageGenerateCode}}
	assert.Contains(t, err.Error(), "missing dependencies")
	assert.Contains(t, err.Error(), "generate_code")
}

func TestValidateDependencies(t *testing.T) {
	now := time.Now()
	j := job.New("j1", "prompt", job.Options{}, now)
	require.NoError(t, j.SetStatus(job.StatusInProgress, now))

	err := ValidateDependencies(j, job.StageDesign)
	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, []job.StageName{job.StageAnalyze}, depErr.MissingDependencies)

	require.NoError(t, j.StartStage(job.StageAnalyze, now))
	require.NoError(t, j.CompleteStage(job.StageAnalyze, json.RawMessage(`{}`), now))
	assert.NoError(t, ValidateDependencies(j, job.StageDesign))

	assert.Error(t, ValidateDependencies(j, "unknown_stage"))
}

func TestSkipped(t *testing.T) {
	now := time.Now()
	assert.True(t, Skipped(job.New("a", "p", job.Options{}, now), job.StageDeploy))
	assert.False(t, Skipped(job.New("b", "p", job.Options{DeployTarget: "vercel"}, now), job.StageDeploy))
	assert.False(t, Skipped(job.New("c", "p", job.Options{}, now), job.StageValidate))
}

type fakeDeployer struct {
	target string
	bundle *types.ProjectBundle
}

func (f *fakeDeployer) Deploy(_ context.Context, target string, bundle *types.ProjectBundle) (*types.DeploymentResult, error) {
	f.target, f.bundle = target, bundle
	return &types.DeploymentResult{Target: target, URL: "https://example.test", ProviderJobID: "dep-1"}, nil
}

// runAll drives every stage over one job the way the orchestrator does,
// committing each artifact before the next stage starts.
func runAll(t *testing.T, j *job.Job, stages []Stage) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, j.SetStatus(job.StatusInProgress, now))
	for _, s := range stages {
		require.NoError(t, ValidateDependencies(j, s.Name()))
		require.NoError(t, j.StartStage(s.Name(), now))
		out, err := s.Run(ctx, NewInput(j, s.Name()))
		require.NoError(t, err, "stage %s", s.Name())
		raw, err := json.Marshal(out)
		require.NoError(t, err)
		require.NoError(t, j.CompleteStage(s.Name(), raw, now))
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	deployer := &fakeDeployer{}
	j := job.New("job-42", "Landing page with hero, features and pricing in dark purple",
		job.Options{DeployTarget: "vercel", CoverageTarget: 0.9}, time.Now())

	runAll(t, j, Pipeline(analysis.Heuristic{}, design.LocalDesigner{}, codegen.TemplateGenerator{}, deployer))

	var code types.GeneratedCode
	ok, err := j.Artifact(job.StageGenerateCode, &code)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "LandingPage", code.ComponentName)

	var report types.ValidationReport
	_, err = j.Artifact(job.StageValidate, &report)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.OverallScore(), 9.0)

	var suite types.TestSuiteReport
	_, err = j.Artifact(job.StageGenerateTests, &suite)
	require.NoError(t, err)
	assert.Equal(t, types.CoverageLabelEstimated, suite.CoverageLabel)
	assert.NotEmpty(t, suite.Files)

	require.NotNil(t, deployer.bundle)
	assert.Equal(t, "vercel", deployer.target)
	assert.Equal(t, "bundles/job-42/landing-page.zip", deployer.bundle.ArchiveKey)
	_, ok = deployer.bundle.File("src/LandingPage.jsx")
	assert.True(t, ok)
	assert.NoError(t, j.CheckInvariants())
}

type recordingGenerator struct{ req codegen.Request }

func (g *recordingGenerator) Generate(_ context.Context, req codegen.Request) (*types.GeneratedCode, error) {
	g.req = req
	return nil, apperr.ProviderUnavailable(nil, "model unavailable")
}

func TestGenerateCodeStage_RetryHint(t *testing.T) {
	now := time.Now()
	j := job.New("j", "signup form", job.Options{ComponentName: "JoinForm"}, now)
	j.Artifacts[job.StageAnalyze] = json.RawMessage(`{"ui_type":"form","components":["form"]}`)
	j.Artifacts[job.StageDesign] = json.RawMessage(`{"sections":[{"name":"Form","component":"form"}]}`)
	st := j.Stage(job.StageGenerateCode)
	st.Attempts = 2
	st.LastError = "model unavailable"

	g := &recordingGenerator{}
	_, err := (&GenerateCodeStage{Generator: g}).Run(context.Background(), NewInput(j, job.StageGenerateCode))
	assert.Equal(t, apperr.KindProviderUnavailable, apperr.KindOf(err))
	assert.Equal(t, "JoinForm", g.req.ComponentName)
	assert.Equal(t, "model unavailable", g.req.Hint)
	require.NotNil(t, g.req.Wireframe)
	assert.Len(t, g.req.Wireframe.Sections, 1)
}

func TestStages_MissingArtifact(t *testing.T) {
	j := job.New("j", "prompt", job.Options{}, time.Now())
	in := NewInput(j, job.StageValidate)
	_, err := ValidateStage{}.Run(context.Background(), in)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	j.Artifacts[job.StageGenerateCode] = json.RawMessage(`{"source":""}`)
	_, err = ValidateStage{}.Run(context.Background(), NewInput(j, job.StageValidate))
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}
