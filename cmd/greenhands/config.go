package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/greenhands/greenhands-shell/internal/bootstrap"
	"github.com/greenhands/greenhands-shell/internal/domain/connection"
	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the backend connection",
	Long:  "Show, test, save or clear the backend URL and anon key stored on this device.",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the resolved backend configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withShell(cmd, func(ctx context.Context, shell *bootstrap.Shell) error {
			st := shell.Resolver.Resolve(ctx)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configured: %t\n", st.Configured)
			fmt.Fprintf(out, "Source:     %s\n", st.Source)
			if st.Configured {
				fmt.Fprintf(out, "URL:        %s\n", st.Credentials.URL)
				fmt.Fprintf(out, "Anon key:   %s\n", connection.MaskKey(st.Credentials.Key))
			}
			if st.Error != "" {
				fmt.Fprintf(out, "Error:      %s\n", st.Error)
			}
			return nil
		})
	},
}

var configTestCmd = &cobra.Command{
	Use:   "test <url> <anon-key>",
	Short: "Check that a backend answers with the given credentials",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		creds := connection.Credentials{URL: args[0], Key: args[1]}
		return withShell(cmd, func(ctx context.Context, shell *bootstrap.Shell) error {
			if err := shell.Resolver.Validate(ctx, creds); err != nil {
				return fmt.Errorf("connection test failed: %s", apperrors.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Connection OK.")
			return nil
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <url> <anon-key>",
	Short: "Save backend credentials on this device",
	Long:  "Save the backend URL and anon key. They take precedence over the bundled configuration.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		creds := connection.Credentials{URL: args[0], Key: args[1]}
		return withShell(cmd, func(ctx context.Context, shell *bootstrap.Shell) error {
			if err := shell.Resolver.Persist(ctx, creds); err != nil {
				return fmt.Errorf("save configuration: %s", apperrors.UserMessage(err))
			}
			st, _ := shell.Resolver.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved for %s.\n", st.Credentials.URL)
			return nil
		})
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the stored backend credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withShell(cmd, func(ctx context.Context, shell *bootstrap.Shell) error {
			if err := shell.Resolver.Clear(ctx); err != nil {
				return fmt.Errorf("clear configuration: %s", apperrors.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stored configuration removed.")
			return nil
		})
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configTestCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
	rootCmd.AddCommand(configCmd)
}
