// Command greenhands-admin is the operator tool for the profiles database.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/greenhands/greenhands-shell/config"
	"github.com/greenhands/greenhands-shell/internal/bootstrap"
	"github.com/greenhands/greenhands-shell/internal/data"
	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
	"github.com/greenhands/greenhands-shell/internal/migrate"
	"github.com/greenhands/greenhands-shell/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 30 * time.Second
)

// connectDB opens the profiles database and returns its closer. Tests point it at an ephemeral schema.
var connectDB = func(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*sql.DB, func() error, error) {
	db, err := bootstrap.ConnectDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := bootstrap.InitLogger(cfg.Observability.Logging)

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2)
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2)
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1)
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations (or list pending ones with --status)",
			run:         runMigrations,
		},
		"leaders": {
			name:        "leaders",
			description: "List team leaders and admins",
			run:         runLeaders,
		},
		"profile": {
			name:        "profile",
			description: "Show a profile or update its role, approval and status",
			run:         runProfile,
		},
		"bootstrap": {
			name:        "bootstrap",
			description: "Promote a user to team leader if no leader exists yet",
			run:         runBootstrap,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: greenhands-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-12s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

type migrateOptions struct {
	Timeout time.Duration
	Status  bool
}

type leadersOptions struct {
	Limit int
}

type profileOptions struct {
	ID     string
	Update domainauth.ProfileUpdate
}

type bootstrapOptions struct {
	UserID string
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if opts.Status {
			pending, err := migrate.Pending(ctx, db)
			if err != nil {
				return fmt.Errorf("list pending migrations: %w", err)
			}
			if len(pending) == 0 {
				return writeln(cmdCtx.Out, "Database is up to date.")
			}
			for _, v := range pending {
				if err := writef(cmdCtx.Out, "pending %s\n", v); err != nil {
					return err
				}
			}
			return nil
		}

		cmdCtx.Logger.InfoContext(ctx, "running database migrations")
		if err := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		return writeln(cmdCtx.Out, "Migrations applied.")
	})
}

func runLeaders(cmdCtx *commandContext, args []string) error {
	opts, err := parseLeadersFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		leaders, err := data.NewProfileRepo(db).ListByRoles(ctx, domainauth.LeaderRoles, opts.Limit)
		if err != nil {
			return fmt.Errorf("list leaders: %w", err)
		}
		if len(leaders) == 0 {
			return writeln(cmdCtx.Out, "No leaders yet. The next user to sign in becomes team leader.")
		}
		return printProfiles(cmdCtx.Out, leaders)
	})
}

func runProfile(cmdCtx *commandContext, args []string) error {
	opts, err := parseProfileFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewProfileRepo(db)
		if !opts.Update.Empty() {
			if err := repo.Update(ctx, opts.ID, opts.Update); err != nil {
				return fmt.Errorf("update profile %s: %w", opts.ID, err)
			}
			cmdCtx.Logger.InfoContext(ctx, "profile updated", "user_id", opts.ID)
		}
		p, err := repo.GetByID(ctx, opts.ID)
		if err != nil {
			return fmt.Errorf("get profile %s: %w", opts.ID, err)
		}
		return printProfiles(cmdCtx.Out, []domainauth.Profile{p})
	})
}

func runBootstrap(cmdCtx *commandContext, args []string) error {
	opts, err := parseBootstrapFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		boot := service.NewLeaderBootstrapper(service.LeaderBootstrapperOptions{
			Profiles:  service.StaticProfiles{Repo: data.NewProfileRepo(db)},
			Telemetry: service.Telemetry{Logger: cmdCtx.Logger},
		})
		if boot.Bootstrap(ctx, opts.UserID) {
			return writef(cmdCtx.Out, "Promoted %s to team leader.\n", opts.UserID)
		}
		return writef(cmdCtx.Out, "No change: a leader already exists or %s could not be promoted.\n", opts.UserID)
	})
}

func printProfiles(w io.Writer, profiles []domainauth.Profile) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tROLE\tAPPROVED\tSTATUS\tNAME\tCREATED"); err != nil {
		return err
	}
	for _, p := range profiles {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n",
			p.ID, p.Role, p.Approved, p.Status, p.FullName(), p.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{Timeout: defaultMigrationTimeout}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration to wait for migrations to complete")
	fs.BoolVar(&opts.Status, "status", false, "List pending migrations without applying them")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseLeadersFlags(args []string) (leadersOptions, error) {
	fs := flag.NewFlagSet("leaders", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := leadersOptions{}
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum number of leaders to list")

	if err := fs.Parse(args); err != nil {
		return leadersOptions{}, err
	}
	if opts.Limit <= 0 {
		return leadersOptions{}, errors.New("--limit must be greater than zero")
	}
	return opts, nil
}

func parseProfileFlags(args []string) (profileOptions, error) {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var id, role, approved, status string
	fs.StringVar(&id, "id", "", "User ID of the profile (required)")
	fs.StringVar(&role, "role", "", "New role: driver, team_leader or admin")
	fs.StringVar(&approved, "approved", "", "New approval flag: true or false")
	fs.StringVar(&status, "status", "", "New status: pending or active")

	if err := fs.Parse(args); err != nil {
		return profileOptions{}, err
	}

	opts := profileOptions{ID: strings.TrimSpace(id)}
	if opts.ID == "" {
		return profileOptions{}, errors.New("--id is required")
	}
	if role != "" {
		r := domainauth.Role(strings.TrimSpace(role))
		if !r.Valid() {
			return profileOptions{}, fmt.Errorf("--role %q is not a known role", role)
		}
		opts.Update.Role = &r
	}
	if approved != "" {
		b, err := strconv.ParseBool(approved)
		if err != nil {
			return profileOptions{}, fmt.Errorf("--approved: %w", err)
		}
		opts.Update.Approved = &b
	}
	if status != "" {
		s := strings.TrimSpace(status)
		if s != domainauth.ProfileStatusPending && s != domainauth.ProfileStatusActive {
			return profileOptions{}, fmt.Errorf("--status must be %q or %q", domainauth.ProfileStatusPending, domainauth.ProfileStatusActive)
		}
		opts.Update.Status = &s
	}
	return opts, nil
}

func parseBootstrapFlags(args []string) (bootstrapOptions, error) {
	fs := flag.NewFlagSet("bootstrap", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := bootstrapOptions{}
	fs.StringVar(&opts.UserID, "user-id", "", "User ID to promote (required)")

	if err := fs.Parse(args); err != nil {
		return bootstrapOptions{}, err
	}
	opts.UserID = strings.TrimSpace(opts.UserID)
	if opts.UserID == "" {
		return bootstrapOptions{}, errors.New("--user-id is required")
	}
	return opts, nil
}

func withDatabase(
	cmdCtx *commandContext,
	timeout time.Duration,
	f func(context.Context, *sql.DB) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, closeDB, err := connectDB(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := closeDB(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	return f(ctx, db)
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
