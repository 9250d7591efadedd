package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/greenhands/greenhands-shell/internal/bootstrap"
	"github.com/greenhands/greenhands-shell/internal/domain/routing"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the session alive and print every routing change",
	Long:  "Run the session loop with token auto-refresh until interrupted. Serves /metrics when METRICS_ADDR is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withShell(cmd, runWatch(cmd))
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command) func(ctx context.Context, shell *bootstrap.Shell) error {
	return func(ctx context.Context, shell *bootstrap.Shell) error {
		g, ctx := errgroup.WithContext(ctx)

		if addr := shell.Config.Observability.Metrics.Addr; addr != "" && shell.Metrics != nil {
			srv, err := bootstrap.NewMetricsServer(addr, shell.Metrics, shell.Logger)
			if err != nil {
				return err
			}
			g.Go(func() error { return srv.Run(ctx) })
		}

		out := cmd.OutOrStdout()
		g.Go(func() error {
			return shell.Run(ctx, func(o routing.Outcome) { printOutcome(out, o) })
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}
