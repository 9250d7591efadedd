package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/greenhands/greenhands-shell/internal/bootstrap"
	"github.com/greenhands/greenhands-shell/internal/domain/routing"
)

var routeTimeout time.Duration

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Print where the shell would send the current user",
	Long:  "Restore the stored session, load the profile, run the first-leader check if needed and print the startup destination.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withShell(cmd, func(ctx context.Context, shell *bootstrap.Shell) error {
			ctx, cancel := context.WithTimeout(ctx, routeTimeout)
			defer cancel()

			var decided *routing.Outcome
			err := shell.Run(ctx, func(out routing.Outcome) {
				if decided == nil {
					decided = &out
					cancel()
				}
			})
			if decided == nil {
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return fmt.Errorf("no routing decision within %s", routeTimeout)
				}
				if err != nil {
					return err
				}
				return ctx.Err()
			}
			printOutcome(cmd.OutOrStdout(), *decided)
			return nil
		})
	},
}

func init() {
	routeCmd.Flags().DurationVar(&routeTimeout, "timeout", 30*time.Second, "Maximum time to wait for a decision")
	rootCmd.AddCommand(routeCmd)
}

func printOutcome(w io.Writer, out routing.Outcome) {
	if out.Role != "" {
		fmt.Fprintf(w, "%s (%s, role %s)\n", out.Decision, out.Reason, out.Role)
		return
	}
	fmt.Fprintf(w, "%s (%s)\n", out.Decision, out.Reason)
}
