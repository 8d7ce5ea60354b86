package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/ui-builder/internal/history"
	"github.com/jonathan/ui-builder/internal/observability"
	"github.com/jonathan/ui-builder/internal/types"
)

// historyRunner opens the history store for one subcommand.
type historyRunner func(ctx context.Context, cmd *cobra.Command, store history.Store, args []string) error

func newHistoryCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past prompts, statistics and prompt templates",
		Long:  `Reads the prompt history. History is only persistent when DATABASE_URL is set; otherwise it is empty for every invocation.`,
	}

	with := func(run historyRunner) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, false)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			conn, _, store, err := openStorage(ctx, cfg, log)
			if err != nil {
				return err
			}
			if conn != nil {
				defer conn.Close()
			}
			return run(ctx, cmd, store, args)
		}
	}

	var filter types.HistoryFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List history entries, newest first",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, cmd *cobra.Command, store history.Store, _ []string) error {
			entries, err := store.List(ctx, filter)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		}),
	}
	list.Flags().StringVar(&filter.Search, "search", "", "Substring to match in the prompt")
	list.Flags().StringVar(&filter.Category, "category", "", "UI category (landing_page, dashboard, form, general)")
	list.Flags().StringVar(&filter.Status, "status", "", "Job status (completed or failed)")
	list.Flags().IntVar(&filter.Limit, "limit", 20, "Maximum entries to return")
	list.Flags().IntVar(&filter.Offset, "offset", 0, "Entries to skip")

	var similarLimit int
	similar := &cobra.Command{
		Use:   "similar <prompt>",
		Short: "Show past prompts similar to a draft",
		Args:  cobra.MinimumNArgs(1),
		RunE: with(func(ctx context.Context, cmd *cobra.Command, store history.Store, args []string) error {
			entries, err := store.FindSimilar(ctx, strings.Join(args, " "), similarLimit)
			if err != nil {
				return err
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintSuggestions(entries)
			return nil
		}),
	}
	similar.Flags().IntVar(&similarLimit, "limit", 5, "Maximum suggestions")

	var days int
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Summarize generations over a period",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, cmd *cobra.Command, store history.Store, _ []string) error {
			s, err := store.Stats(ctx, days)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s)
		}),
	}
	stats.Flags().IntVar(&days, "days", 30, "Period in days")

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a history entry",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(ctx context.Context, cmd *cobra.Command, store history.Store, args []string) error {
			if err := store.SoftDelete(ctx, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		}),
	}

	var category string
	var apply []string
	templates := &cobra.Command{
		Use:   "templates [id]",
		Short: "List prompt templates, or fill one in with --set key=value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeJSON(cmd.OutOrStdout(), history.Templates(category))
			}
			values := map[string]string{}
			for _, kv := range apply {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid --set %q, want key=value", kv)
				}
				values[k] = v
			}
			prompt, err := history.ApplyTemplate(args[0], values)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return nil
		},
	}
	templates.Flags().StringVar(&category, "category", "", "Only templates of this category")
	templates.Flags().StringArrayVar(&apply, "set", nil, "Placeholder value as key=value (repeatable)")

	cmd.AddCommand(list, similar, stats, remove, templates)
	return cmd
}

