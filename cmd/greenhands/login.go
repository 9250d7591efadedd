package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/greenhands/greenhands-shell/internal/bootstrap"
	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
)

// readPassword reads a password without echo. Tests replace it.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Long:  "Sign in to the configured backend and store the session on this device.",
	RunE:  runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Email address")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (will prompt if not provided)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	defer func() {
		loginEmail = ""
		loginPassword = ""
	}()

	out := cmd.OutOrStdout()
	if loginEmail == "" {
		fmt.Fprint(out, "Email: ")
		if _, err := fmt.Fscanln(cmd.InOrStdin(), &loginEmail); err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}
	if loginPassword == "" {
		fmt.Fprint(out, "Password: ")
		pw, err := readPassword()
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		loginPassword = string(pw)
	}
	email := strings.TrimSpace(loginEmail)

	return withShell(cmd, func(ctx context.Context, shell *bootstrap.Shell) error {
		if err := shell.Start(ctx); err != nil {
			return err
		}
		sess, err := shell.Auth.SignIn(ctx, email, loginPassword)
		if err != nil {
			return fmt.Errorf("login failed: %s", apperrors.UserMessage(err))
		}
		fmt.Fprintf(out, "Signed in as %s.\n", displayName(sess.User.Email, sess.UserID()))
		return nil
	})
}

func displayName(email, id string) string {
	if email != "" {
		return email
	}
	return id
}
