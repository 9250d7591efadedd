// Command greenhands is the device shell: it resolves the backend configuration, restores the
// stored session and decides where the user lands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/greenhands/greenhands-shell/internal/bootstrap"
	"github.com/greenhands/greenhands-shell/internal/observability/metrics"
)

const version = "0.1.0"

// newShell assembles the shell for one invocation. Tests replace it with an in-memory shell.
var newShell = func(ctx context.Context) (*bootstrap.Shell, func() error, error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := bootstrap.InitLogger(cfg.Observability.Logging)

	storage, closeStorage, err := bootstrap.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	shell := bootstrap.NewShell(bootstrap.ShellDeps{
		Config:  cfg,
		Storage: storage,
		Logger:  logger,
		Metrics: metrics.New(),
	})
	return shell, closeStorage, nil
}

var rootCmd = &cobra.Command{
	Use:           "greenhands",
	Short:         "Green Hands device shell",
	Long:          "Configure the backend, manage the device session and compute the startup destination.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// withShell builds a shell, runs fn and releases the shell's resources.
func withShell(cmd *cobra.Command, fn func(ctx context.Context, shell *bootstrap.Shell) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	shell, closeFn, err := newShell(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shell.Auth.Close()
		if closeErr := closeFn(); closeErr != nil {
			shell.Logger.Warn("close storage failed", "error", closeErr)
		}
	}()
	return fn(ctx, shell)
}
