package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/greenhands/greenhands-shell/internal/bootstrap"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withShell(cmd, func(ctx context.Context, shell *bootstrap.Shell) error {
			if err := shell.Start(ctx); err != nil {
				return err
			}
			if shell.Auth.CurrentSession() == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			if err := shell.Sessions.SignOut(ctx); err != nil {
				// Local state is cleared regardless; only the remote revoke failed.
				shell.Logger.WarnContext(ctx, "remote sign-out failed", "error", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
