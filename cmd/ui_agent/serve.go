package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/ui-builder/internal/logger"
	"github.com/jonathan/ui-builder/internal/server"
	"github.com/jonathan/ui-builder/internal/server/ratelimit"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  `Start an HTTP server that accepts generation jobs, streams their progress and exposes the validation, test generation and history tools.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := newLogger(cfg, true)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hub := server.NewHub()
			a, err := newApp(ctx, cfg, log, hub.Publish)
			if err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			defer a.Close()

			deps := server.Deps{
				Orchestrator: a.orch,
				Events:       hub,
				Targets:      a.router,
				Gatherer:     a.registry,
				Log:          log,
			}
			if a.db != nil {
				deps.Health = a.db
			}
			srv, err := server.New(server.Config{
				Port:      cfg.Port,
				RateLimit: ratelimit.NewConfig(cfg.RateLimitRPS, cfg.RateLimitBurst),
			}, deps)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			log.Info("deploy targets registered", logger.Any("targets", a.router.Targets()))
			return srv.Start(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on (defaults to PORT)")
	return cmd
}
