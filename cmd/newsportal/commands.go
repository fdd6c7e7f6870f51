package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"NewsPortal/internal/app"
	"NewsPortal/internal/config"
	"NewsPortal/internal/domain"
	"NewsPortal/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "newsportal",
		Short: "News portal API with trending and popular rankings",
		Long: `newsportal serves the article API and keeps view counters, trending and
popular scores up to date.

Example usage:
  newsportal serve                    # API plus scheduled scoring passes
  newsportal recompute --window 24h   # one trending pass
  newsportal recompute --window 7d    # one popular pass
  newsportal cleanup                  # drop expired view events`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(), newRecomputeCmd(), newCleanupCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scoring scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), func(ctx context.Context, application *app.Application, _ *slog.Logger) error {
				return application.Run(ctx)
			})
		},
	}
}

func newRecomputeCmd() *cobra.Command {
	var window string

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute counters and scores for one window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := domain.ParseWindow(window)
			if err != nil {
				return err
			}

			return withApplication(cmd.Context(), func(ctx context.Context, application *app.Application, logger *slog.Logger) error {
				res, err := application.Recompute(ctx, w)
				if err != nil {
					return err
				}
				logger.Info("recompute finished", "window", res.Window, "updated", res.Updated, "failed", res.Failed)
				fmt.Fprintf(cmd.OutOrStdout(), "window=%s updated=%d failed=%d\n", res.Window, res.Updated, res.Failed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&window, "window", string(domain.Window24h), "counting window: 24h or 7d")
	return cmd
}

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete view events past their retention",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), func(ctx context.Context, application *app.Application, _ *slog.Logger) error {
				removed, err := application.Cleanup(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed=%d\n", removed)
				return nil
			})
		},
	}
}

func withApplication(ctx context.Context, run func(context.Context, *app.Application, *slog.Logger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init application: %w", err)
	}
	defer func() {
		if err := application.Close(context.Background()); err != nil {
			logger.Error("close application", "error", err)
		}
	}()

	return run(ctx, application, logger)
}
