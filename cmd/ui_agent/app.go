package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jonathan/ui-builder/internal/analysis"
	"github.com/jonathan/ui-builder/internal/codegen"
	"github.com/jonathan/ui-builder/internal/config"
	"github.com/jonathan/ui-builder/internal/db"
	"github.com/jonathan/ui-builder/internal/deploy"
	"github.com/jonathan/ui-builder/internal/design"
	"github.com/jonathan/ui-builder/internal/history"
	"github.com/jonathan/ui-builder/internal/jobstore"
	"github.com/jonathan/ui-builder/internal/llm"
	"github.com/jonathan/ui-builder/internal/logger"
	"github.com/jonathan/ui-builder/internal/metrics"
	"github.com/jonathan/ui-builder/internal/pipeline"
	"github.com/jonathan/ui-builder/internal/pipeline/steps"
)

// app holds the wired collaborators of one process.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	db       *db.DB
	llm      llm.Client
	router   *deploy.Router
	history  history.Store
	registry *prometheus.Registry
	orch     *pipeline.Orchestrator
}

// openStorage opens Postgres when DATABASE_URL is set and applies the schema.
// Without it both stores live in memory for the life of the process.
func openStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (*db.DB, jobstore.Store, history.Store, error) {
	var (
		jobs jobstore.Store = jobstore.NewMemoryStore()
		hist history.Store  = history.NewMemoryStore()
		conn *db.DB
	)
	if cfg.DatabaseURL != "" {
		var err error
		conn, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := conn.Migrate(ctx); err != nil {
			conn.Close()
			return nil, nil, nil, err
		}
		jobs = jobstore.NewPersistentStore(jobs, conn, log)
		hist = history.NewPostgresStore(conn)
		log.Info("using postgres storage")
	}

	cached, err := history.NewCachedStore(hist, cfg.HistoryCacheSize)
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, nil, nil, err
	}
	return conn, jobs, cached, nil
}

// newRouter registers every provider. Bundles are archived to S3 when an
// endpoint is configured; a GitHub token enables repository-backed targets.
func newRouter(cfg *config.Config, log logger.Logger) (*deploy.Router, error) {
	var store deploy.BundleStore = deploy.NewMemoryBundleStore()
	if cfg.Bundle.Endpoint != "" {
		s3, err := deploy.NewS3BundleStore(deploy.S3Config{
			Endpoint:  cfg.Bundle.Endpoint,
			Region:    cfg.Bundle.Region,
			AccessKey: cfg.Bundle.AccessKey,
			SecretKey: cfg.Bundle.SecretKey,
			Bucket:    cfg.Bundle.Bucket,
			UseSSL:    cfg.Bundle.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		store = s3
	}

	opts := []deploy.RouterOption{deploy.WithBundleStore(store), deploy.WithLogger(log)}
	if cfg.Deploy.GitHubToken != "" {
		opts = append(opts, deploy.WithRepositoryCreator(
			deploy.NewGitHubRepositories(deploy.ProviderConfig{Token: cfg.Deploy.GitHubToken})))
	}
	router := deploy.NewRouter(opts...)
	for _, p := range deploy.DefaultProviders(deploy.Credentials{
		VercelToken:    cfg.Deploy.VercelToken,
		NetlifyToken:   cfg.Deploy.NetlifyToken,
		RenderAPIKey:   cfg.Deploy.RenderAPIKey,
		GitHubToken:    cfg.Deploy.GitHubToken,
		DockerHost:     cfg.Deploy.DockerHost,
		DockerRegistry: cfg.Deploy.DockerRegistry,
		DockerToken:    cfg.Deploy.DockerToken,
	}) {
		router.Register(p)
	}
	return router, nil
}

// newGenerators picks the model-backed analyzer and generator when an API
// key is configured and the deterministic ones otherwise.
func newGenerators(ctx context.Context, cfg *config.Config, log logger.Logger) (analysis.Analyzer, codegen.Generator, llm.Client, error) {
	if cfg.GeminiAPIKey == "" {
		log.Info("no GEMINI_API_KEY set, using template code generator")
		return analysis.Heuristic{}, codegen.TemplateGenerator{}, nil, nil
	}
	llmCfg := llm.DefaultConfig()
	if cfg.GeminiModel != "" {
		llmCfg.Models[llm.TierStandard] = cfg.GeminiModel
	}
	client, err := llm.NewClient(ctx, llmCfg, cfg.GeminiAPIKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return &analysis.LLMAnalyzer{Client: client, Log: log}, codegen.NewLLMGenerator(client), client, nil
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger, onProgress pipeline.ProgressCallback) (*app, error) {
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	conn, jobs, hist, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.db, a.history = conn, hist

	if a.router, err = newRouter(cfg, log); err != nil {
		a.Close()
		return nil, err
	}

	analyzer, generator, client, err := newGenerators(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.llm = client

	a.orch, err = pipeline.New(pipeline.Options{
		Stages:      steps.Pipeline(analyzer, design.LocalDesigner{}, generator, a.router),
		Store:       jobs,
		History:     hist,
		Targets:     a.router,
		MaxInFlight: cfg.MaxInFlight,
		Retry: pipeline.RetryPolicy{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: cfg.RetryInitialDelay,
			MaxDelay:     cfg.RetryMaxDelay,
			Multiplier:   2,
		},
		StageTimeout:          cfg.StageTimeout,
		DefaultCoverageTarget: cfg.DefaultCoverageTarget,
		Metrics:               metrics.New(a.registry),
		Log:                   log,
		OnProgress:            onProgress,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases external connections. The orchestrator is shut down by
// its owner before Close.
func (a *app) Close() {
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			a.log.Warn("failed to close LLM client", logger.Error(err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	_ = a.log.Sync()
}
