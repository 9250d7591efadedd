package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenhands/greenhands-shell/config"
	"github.com/greenhands/greenhands-shell/internal/bootstrap"
	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
	"github.com/greenhands/greenhands-shell/internal/domain/connection"
	fakes "github.com/greenhands/greenhands-shell/internal/mocks/auth"
	"github.com/greenhands/greenhands-shell/internal/ports"
)

// testDevice is the state that survives between command invocations on one device.
type testDevice struct {
	storage *fakes.MemoryStorage
	repo    *fakes.MemoryProfiles

	mu       sync.Mutex
	probeErr error
	closed   int
}

func newTestDevice(t *testing.T, stored map[string]string, profiles ...domainauth.Profile) *testDevice {
	t.Helper()
	d := &testDevice{
		storage: fakes.NewMemoryStorage(stored),
		repo:    fakes.NewMemoryProfiles(profiles...),
	}
	orig := newShell
	newShell = d.shell
	t.Cleanup(func() { newShell = orig })
	return d
}

func (d *testDevice) shell(context.Context) (*bootstrap.Shell, func() error, error) {
	factory := ports.BackendFactoryFunc(func(creds connection.Credentials) (ports.Backend, error) {
		b := fakes.NewFakeBackend(creds, d.repo)
		d.mu.Lock()
		probeErr := d.probeErr
		d.mu.Unlock()
		b.ProbeFunc = func(context.Context) error { return probeErr }
		return b, nil
	})
	shell := bootstrap.NewShell(bootstrap.ShellDeps{
		Config:  config.AppConfig{Session: config.SessionConfig{RefreshMargin: time.Minute}},
		Storage: d.storage,
		Factory: factory,
		Logger:  slog.New(slog.DiscardHandler),
	})
	return shell, func() error {
		d.mu.Lock()
		d.closed++
		d.mu.Unlock()
		return nil
	}, nil
}

func configured() map[string]string {
	return map[string]string{
		connection.StorageKeyURL:     "https://x.test",
		connection.StorageKeyAnonKey: "anon-key-123456789",
	}
}

func execute(t *testing.T, sub *cobra.Command, args ...string) (string, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "greenhands", SilenceUsage: true, SilenceErrors: true}
	cmd.AddCommand(sub)

	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(output)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return output.String(), err
}

func TestVersionCommand(t *testing.T) {
	got, err := execute(t, versionCmd, "version")
	require.NoError(t, err)
	assert.Equal(t, "greenhands version 0.1.0\n", got)
}

func TestConfigCommands(t *testing.T) {
	t.Run("show without configuration", func(t *testing.T) {
		newTestDevice(t, nil)
		got, err := execute(t, configCmd, "config", "show")
		require.NoError(t, err)
		assert.Contains(t, got, "Configured: false")
		assert.Contains(t, got, "Source:     none")
		assert.Contains(t, got, "Error:")
	})

	t.Run("set then show masks the key", func(t *testing.T) {
		d := newTestDevice(t, nil)
		got, err := execute(t, configCmd, "config", "set", " https://x.test ", "anon-key-123456789")
		require.NoError(t, err)
		assert.Equal(t, "Configuration saved for https://x.test.\n", got)
		assert.Equal(t, "https://x.test", d.storage.Values()[connection.StorageKeyURL])

		got, err = execute(t, configCmd, "config", "show")
		require.NoError(t, err)
		assert.Contains(t, got, "Configured: true")
		assert.Contains(t, got, "Source:     storage")
		assert.Contains(t, got, "anon-k...6789")
		assert.NotContains(t, got, "anon-key-123456789")
	})

	t.Run("set rejects a missing key", func(t *testing.T) {
		d := newTestDevice(t, nil)
		_, err := execute(t, configCmd, "config", "set", "https://x.test", " ")
		require.Error(t, err)
		assert.Empty(t, d.storage.Values())
	})

	t.Run("test reports the probe result", func(t *testing.T) {
		d := newTestDevice(t, nil)
		got, err := execute(t, configCmd, "config", "test", "https://x.test", "k1")
		require.NoError(t, err)
		assert.Equal(t, "Connection OK.\n", got)

		d.probeErr = errors.New("connection refused")
		_, err = execute(t, configCmd, "config", "test", "https://x.test", "k1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection test failed")
		assert.Empty(t, d.storage.Values(), "testing must not persist anything")
	})

	t.Run("reset removes stored credentials", func(t *testing.T) {
		d := newTestDevice(t, configured())
		got, err := execute(t, configCmd, "config", "reset")
		require.NoError(t, err)
		assert.Equal(t, "Stored configuration removed.\n", got)
		assert.Empty(t, d.storage.Values())
		assert.Equal(t, 1, d.closed)
	})
}

func TestLoginCommand(t *testing.T) {
	t.Run("flags", func(t *testing.T) {
		d := newTestDevice(t, configured())
		got, err := execute(t, loginCmd, "login", "--email", "d@example.com", "--password", "secret")
		require.NoError(t, err)
		assert.Contains(t, got, "Signed in as ")
		assert.Contains(t, d.storage.Values(), "sb-fake-auth-token")
		assert.Empty(t, loginEmail, "flags must be reset after the run")
	})

	t.Run("prompts", func(t *testing.T) {
		newTestDevice(t, configured())
		origRead := readPassword
		readPassword = func() ([]byte, error) { return []byte("secret"), nil }
		t.Cleanup(func() { readPassword = origRead })

		cmd := &cobra.Command{Use: "greenhands"}
		cmd.AddCommand(loginCmd)
		output := &bytes.Buffer{}
		cmd.SetOut(output)
		cmd.SetIn(strings.NewReader("d@example.com\n"))
		cmd.SetArgs([]string{"login"})
		require.NoError(t, cmd.Execute())

		assert.Contains(t, output.String(), "Email: ")
		assert.Contains(t, output.String(), "Password: ")
		assert.Contains(t, output.String(), "Signed in as ")
	})

	t.Run("not configured", func(t *testing.T) {
		newTestDevice(t, nil)
		_, err := execute(t, loginCmd, "login", "--email", "d@example.com", "--password", "secret")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "login failed")
	})
}

func TestLogoutCommand(t *testing.T) {
	d := newTestDevice(t, configured())

	got, err := execute(t, logoutCmd, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Not signed in.\n", got)

	_, err = execute(t, loginCmd, "login", "--email", "d@example.com", "--password", "secret")
	require.NoError(t, err)

	got, err = execute(t, logoutCmd, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Signed out.\n", got)
	assert.NotContains(t, d.storage.Values(), "sb-fake-auth-token")
}

func TestRouteCommand(t *testing.T) {
	leader := domainauth.Profile{ID: "leader", Role: domainauth.RoleAdmin, CreatedAt: time.Unix(0, 0)}
	driver := domainauth.Profile{ID: "user-d@example.com", Role: domainauth.RoleDriver, CreatedAt: time.Unix(1, 0)}

	t.Run("signed out goes to login", func(t *testing.T) {
		newTestDevice(t, configured(), leader)
		got, err := execute(t, routeCmd, "route", "--timeout", "5s")
		require.NoError(t, err)
		assert.Equal(t, "goto-login (no session)\n", got)
	})

	t.Run("driver goes to the dashboard", func(t *testing.T) {
		newTestDevice(t, configured(), leader, driver)
		_, err := execute(t, loginCmd, "login", "--email", "d@example.com", "--password", "secret")
		require.NoError(t, err)

		got, err := execute(t, routeCmd, "route", "--timeout", "5s")
		require.NoError(t, err)
		assert.Equal(t, "goto-driver-dashboard (role, role driver)\n", got)
	})

	t.Run("first user becomes team leader", func(t *testing.T) {
		d := newTestDevice(t, configured(), driver)
		_, err := execute(t, loginCmd, "login", "--email", "d@example.com", "--password", "secret")
		require.NoError(t, err)

		got, err := execute(t, routeCmd, "route", "--timeout", "5s")
		require.NoError(t, err)
		assert.Equal(t, "goto-admin-home (role, role team_leader)\n", got)
		assert.Equal(t, []string{"user-d@example.com"}, d.repo.Leaders())
	})
}

func TestWatchCommand_StopsOnCancel(t *testing.T) {
	newTestDevice(t, configured())

	ctx, cancel := context.WithCancel(context.Background())
	cmd := &cobra.Command{Use: "greenhands"}
	cmd.AddCommand(watchCmd)
	output := &syncBuffer{}
	cmd.SetOut(output)
	cmd.SetArgs([]string{"watch"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(output.String(), "goto-login")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
