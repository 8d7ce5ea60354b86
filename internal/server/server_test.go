package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ui-builder/internal/analysis"
	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/codegen"
	"github.com/jonathan/ui-builder/internal/design"
	"github.com/jonathan/ui-builder/internal/job"
	"github.com/jonathan/ui-builder/internal/metrics"
	"github.com/jonathan/ui-builder/internal/pipeline"
	"github.com/jonathan/ui-builder/internal/pipeline/steps"
	"github.com/jonathan/ui-builder/internal/server/ratelimit"
	"github.com/jonathan/ui-builder/internal/types"
)

type fakeRouter struct{ targets []string }

func (f fakeRouter) Targets() []string { return f.targets }

func (f fakeRouter) Validate(target string) error {
	for _, t := range f.targets {
		if t == target {
			return nil
		}
	}
	return apperr.UnknownTarget(target)
}

func (f fakeRouter) Deploy(_ context.Context, target string, b *types.ProjectBundle) (*types.DeploymentResult, error) {
	return &types.DeploymentResult{Target: target, URL: "https://" + b.Name + ".example.test"}, nil
}

type failingPing struct{}

func (failingPing) Ping(context.Context) error { return fmt.Errorf("connection refused") }

type testEnv struct {
	srv  *Server
	orch *pipeline.Orchestrator
	http *httptest.Server
}

func newTestEnv(t *testing.T, mutate func(*Config, *Deps)) *testEnv {
	t.Helper()
	router := fakeRouter{targets: []string{"netlify", "vercel"}}
	hub := NewHub()
	reg := prometheus.NewRegistry()

	orch, err := pipeline.New(pipeline.Options{
		Stages:     steps.Pipeline(analysis.Heuristic{}, design.LocalDesigner{}, codegen.TemplateGenerator{}, router),
		Targets:    router,
		Retry:      pipeline.RetryPolicy{MaxRetries: 1},
		Metrics:    metrics.New(reg),
		OnProgress: hub.Publish,
	})
	require.NoError(t, err)

	cfg := Config{RateLimit: ratelimit.NewConfig(100, 100), PollInterval: 20 * time.Millisecond}
	deps := Deps{Orchestrator: orch, Events: hub, Targets: router, Gatherer: reg}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	srv, err := New(cfg, deps)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.rateLimiter.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})
	return &testEnv{srv: srv, orch: orch, http: ts}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.http.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) waitTerminal(t *testing.T, id string) *job.Job {
	t.Helper()
	var last *job.Job
	require.Eventually(t, func() bool {
		j, err := e.orch.GetStatus(context.Background(), id)
		require.NoError(t, err)
		last = j
		return j.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return last
}

func newLocalListener() (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}

func TestNew_RequiresOrchestrator(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	sick := newTestEnv(t, func(_ *Config, d *Deps) { d.Health = failingPing{} })
	resp = sick.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSubmitJob_CompletesWithDeployment(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/jobs", types.SubmitJobRequest{
		Prompt:       "Landing page with hero and pricing in dark blue",
		DeployTarget: "netlify",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	body := decode[JobResponse](t, resp)
	assert.Equal(t, "queued", body.Status)
	require.NotEmpty(t, body.JobID)
	assert.Equal(t, "/jobs/"+body.JobID, resp.Header.Get("Location"))

	j := env.waitTerminal(t, body.JobID)
	require.Equal(t, job.StatusCompleted, j.Status, "error: %s", j.Error)

	resp = env.do(t, http.MethodGet, "/jobs/"+body.JobID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snapshot := decode[job.Job](t, resp)
	assert.Equal(t, job.StatusCompleted, snapshot.Status)
	var dep types.DeploymentResult
	ok, err := snapshot.Artifact(job.StageDeploy, &dep)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "netlify", dep.Target)
	assert.True(t, strings.HasSuffix(dep.URL, ".example.test"), dep.URL)

	resp = env.do(t, http.MethodGet, "/jobs?limit=5", nil)
	list := decode[struct {
		Jobs  []JobSummary `json:"jobs"`
		Count int          `json:"count"`
	}](t, resp)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, body.JobID, list.Jobs[0].ID)
	assert.Equal(t, "netlify", list.Jobs[0].DeployTarget)
}

func TestSubmitJob_Rejections(t *testing.T) {
	env := newTestEnv(t, nil)
	low := 0.3

	tests := []struct {
		name   string
		body   any
		status int
		kind   string
	}{
		{"empty prompt", types.SubmitJobRequest{Prompt: "  "}, http.StatusBadRequest, "invalid_request"},
		{"unknown target", types.SubmitJobRequest{Prompt: "a form", DeployTarget: "heroku"}, http.StatusBadRequest, "invalid_request"},
		{"coverage out of range", types.SubmitJobRequest{Prompt: "a form", CoverageTarget: &low}, http.StatusBadRequest, "invalid_request"},
		{"bad component name", types.SubmitJobRequest{Prompt: "a form", ComponentName: "my-form!"}, http.StatusBadRequest, "invalid_request"},
		{"not json", "{{{", http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/jobs", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.kind, decode[ErrorResponse](t, resp).Kind)
		})
	}

	jobs, err := env.orch.ListJobs(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestGetJob_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/jobs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, resp).Kind)

	resp = env.do(t, http.MethodPost, "/jobs/does-not-exist/cancel", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelJob_Terminal(t *testing.T) {
	env := newTestEnv(t, nil)
	id, err := env.orch.Submit(context.Background(), pipeline.SubmitRequest{Prompt: "simple button"})
	require.NoError(t, err)
	env.waitTerminal(t, id)

	resp := env.do(t, http.MethodPost, "/jobs/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", decode[JobResponse](t, resp).Status)
}

func TestJobEvents_StreamsUntilComplete(t *testing.T) {
	env := newTestEnv(t, nil)
	id, err := env.orch.Submit(context.Background(), pipeline.SubmitRequest{Prompt: "dashboard with charts and a sidebar"})
	require.NoError(t, err)

	resp := env.do(t, http.MethodGet, "/jobs/"+id+"/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []string
	var versions []int64
	var complete map[string]string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	event := ""
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
			events = append(events, event)
		case strings.HasPrefix(line, "data: "):
			data := []byte(strings.TrimPrefix(line, "data: "))
			if event == "snapshot" {
				var j job.Job
				require.NoError(t, json.Unmarshal(data, &j))
				versions = append(versions, j.Version)
			}
			if event == "complete" {
				require.NoError(t, json.Unmarshal(data, &complete))
			}
		}
	}

	require.NotEmpty(t, versions)
	for i := 1; i < len(versions); i++ {
		assert.Greater(t, versions[i], versions[i-1])
	}
	assert.Equal(t, "complete", events[len(events)-1])
	assert.Equal(t, id, complete["job_id"])
	assert.Equal(t, "completed", complete["status"])
	assert.Zero(t, env.srv.events.Subscribers(id))
}

func TestJobEvents_UnknownJob(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/jobs/nope/events", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	id, err := env.orch.Submit(ctx, pipeline.SubmitRequest{Prompt: "signup form with email and password"})
	require.NoError(t, err)
	env.waitTerminal(t, id)

	var entries []types.HistoryEntry
	require.Eventually(t, func() bool {
		resp := env.do(t, http.MethodGet, "/history?status=completed", nil)
		entries = decode[struct {
			Entries []types.HistoryEntry `json:"entries"`
		}](t, resp).Entries
		return len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)
	entry := entries[0]
	assert.Equal(t, id, entry.JobID)

	resp := env.do(t, http.MethodGet, "/history?similar_to=email+signup+form", nil)
	similar := decode[struct {
		Entries []types.HistoryEntry `json:"entries"`
	}](t, resp).Entries
	require.Len(t, similar, 1)

	resp = env.do(t, http.MethodGet, "/history/suggestions?prompt=password+signup", nil)
	assert.Len(t, decode[map[string][]types.HistoryEntry](t, resp)["suggestions"], 1)

	resp = env.do(t, http.MethodGet, "/history/"+entry.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, decode[types.HistoryEntry](t, resp).JobID)

	resp = env.do(t, http.MethodGet, "/history/stats?days=7", nil)
	stats := decode[types.HistoryStats](t, resp)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)

	resp = env.do(t, http.MethodDelete, "/history/"+entry.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/history/"+entry.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTemplates(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/templates", nil)
	templates := decode[map[string][]types.PromptTemplate](t, resp)["templates"]
	require.NotEmpty(t, templates)
	tmpl := templates[0]

	values := map[string]string{}
	for _, p := range tmpl.Placeholders {
		values[p] = "Acme"
	}
	resp = env.do(t, http.MethodPost, "/templates/"+tmpl.ID+"/apply", types.ApplyTemplateRequest{Values: values})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode[map[string]string](t, resp)["prompt"])

	resp = env.do(t, http.MethodPost, "/templates/missing/apply", types.ApplyTemplateRequest{Values: values})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

const sampleSource = `import React from 'react';

const Gallery = () => {
  console.log('render');
  return (
    <main>
      <img src="/hero.webp" />
    </main>
  );
};

export default Gallery;
`

func TestValidateEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/validate", types.ValidateCodeRequest{Source: sampleSource})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	vr := decode[ValidateResponse](t, resp)
	require.NotNil(t, vr.Report)
	assert.Less(t, vr.Report.OverallScore(), 10.0)
	assert.NotEmpty(t, vr.Suggestions)

	resp = env.do(t, http.MethodPost, "/validate/fix", types.ApplyFixesRequest{Source: sampleSource})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fixed struct {
		Source  string                  `json:"source"`
		Applied []string                `json:"applied"`
		Report  *types.ValidationReport `json:"report"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fixed))
	assert.NotContains(t, fixed.Source, "console.log")
	assert.Contains(t, fixed.Applied, "debug_statements")
	assert.Greater(t, fixed.Report.OverallScore(), vr.Report.OverallScore())

	resp = env.do(t, http.MethodPost, "/validate", types.ValidateCodeRequest{Source: sampleSource, ComponentType: "vue"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/validate/rules", nil)
	rules := decode[map[string]json.RawMessage](t, resp)
	assert.Contains(t, string(rules["rules"]), "alt_text_missing")
	assert.Contains(t, string(rules["fixable"]), "missing_lazy_loading")
}

func TestGenerateTestsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/tests/generate", types.GenerateTestsRequest{
		Source:    sampleSource,
		TestTypes: []types.TestType{types.TestTypeUnit},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	suite := decode[types.TestSuiteReport](t, resp)
	assert.Equal(t, types.CoverageLabelEstimated, suite.CoverageLabel)
	assert.NotEmpty(t, suite.Files)

	resp = env.do(t, http.MethodPost, "/tests/generate", types.GenerateTestsRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeployTargets(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/deploy/targets", nil)
	assert.Equal(t, []string{"netlify", "vercel"}, decode[map[string][]string](t, resp)["targets"])

	bare := newTestEnv(t, func(_ *Config, d *Deps) { d.Targets = nil })
	resp = bare.do(t, http.MethodGet, "/deploy/targets", nil)
	assert.Empty(t, decode[map[string][]string](t, resp)["targets"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.orch.Submit(context.Background(), pipeline.SubmitRequest{Prompt: "pricing table"})
	require.NoError(t, err)

	resp := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ui_builder_orchestrator_jobs_submitted_total 1")
}

func TestRateLimit_JobSubmission(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *Deps) { c.RateLimit = ratelimit.NewConfig(0.001, 2) })

	for i := 0; i < 2; i++ {
		resp := env.do(t, http.MethodPost, "/jobs", types.SubmitJobRequest{Prompt: "hero section"})
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}
	resp := env.do(t, http.MethodPost, "/jobs", types.SubmitJobRequest{Prompt: "hero section"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Reads are not affected.
	resp = env.do(t, http.MethodGet, "/jobs", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodOptions, "/jobs", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServe_ShutsDownOnContextCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	ln, err := newLocalListener()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = env.orch.Submit(context.Background(), pipeline.SubmitRequest{Prompt: "late"})
	assert.ErrorIs(t, err, pipeline.ErrShuttingDown)
}
