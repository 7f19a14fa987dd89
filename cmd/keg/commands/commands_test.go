package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/cmd/keg/commands"
	"go.trai.ch/keg/internal/app"
	"go.trai.ch/keg/internal/build"
)

type mockApp struct {
	installFunc func(ctx context.Context, name string, opts app.InstallOptions) error
	removeFunc  func(ctx context.Context, names []string, opts app.RemoveOptions) error
	upgradeFunc func(ctx context.Context, names []string, opts app.UpgradeOptions) error
	cleanupFunc func(ctx context.Context, opts app.CleanupOptions) error
	calls       []string
}

func (m *mockApp) Install(ctx context.Context, name string, opts app.InstallOptions) error {
	m.calls = append(m.calls, "install "+name)
	if m.installFunc != nil {
		return m.installFunc(ctx, name, opts)
	}
	return nil
}

func (m *mockApp) Remove(ctx context.Context, names []string, opts app.RemoveOptions) error {
	m.calls = append(m.calls, "remove")
	if m.removeFunc != nil {
		return m.removeFunc(ctx, names, opts)
	}
	return nil
}

func (m *mockApp) Upgrade(ctx context.Context, names []string, opts app.UpgradeOptions) error {
	m.calls = append(m.calls, "upgrade")
	if m.upgradeFunc != nil {
		return m.upgradeFunc(ctx, names, opts)
	}
	return nil
}

func (m *mockApp) List(_ context.Context) error {
	m.calls = append(m.calls, "list")
	return nil
}

func (m *mockApp) Why(_ context.Context, name string) error {
	m.calls = append(m.calls, "why "+name)
	return nil
}

func (m *mockApp) Info(_ context.Context, name string) error {
	m.calls = append(m.calls, "info "+name)
	return nil
}

func (m *mockApp) Verify(_ context.Context) error {
	m.calls = append(m.calls, "verify")
	return nil
}

func (m *mockApp) Cleanup(ctx context.Context, opts app.CleanupOptions) error {
	m.calls = append(m.calls, "cleanup")
	if m.cleanupFunc != nil {
		return m.cleanupFunc(ctx, opts)
	}
	return nil
}

func execute(t *testing.T, a commands.Application, args ...string) (string, error) {
	t.Helper()
	cli := commands.New(a)
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return buf.String(), err
}

func TestCommands_Install(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var captured app.InstallOptions
		var name string
		mock := &mockApp{
			installFunc: func(_ context.Context, n string, opts app.InstallOptions) error {
				name = n
				captured = opts
				return nil
			},
		}

		_, err := execute(t, mock, "install", "wget", "--version", ">=1.2, <2.0", "--dry-run", "--no-wait", "--policy", "latest")
		require.NoError(t, err)
		assert.Equal(t, "wget", name)
		assert.Equal(t, app.InstallOptions{
			Constraint: ">=1.2, <2.0",
			Policy:     "latest",
			DryRun:     true,
			NoWait:     true,
		}, captured)
	})

	t.Run("returns error on install failure", func(t *testing.T) {
		mock := &mockApp{
			installFunc: func(_ context.Context, _ string, _ app.InstallOptions) error {
				return errors.New("simulated error")
			},
		}

		_, err := execute(t, mock, "install", "wget")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})

	t.Run("requires exactly one package", func(t *testing.T) {
		mock := &mockApp{}

		_, err := execute(t, mock, "install")
		require.Error(t, err)
		_, err = execute(t, mock, "install", "a", "b")
		require.Error(t, err)
		assert.Empty(t, mock.calls)
	})
}

func TestCommands_Remove(t *testing.T) {
	var captured app.RemoveOptions
	var names []string
	mock := &mockApp{
		removeFunc: func(_ context.Context, n []string, opts app.RemoveOptions) error {
			names = n
			captured = opts
			return nil
		},
	}

	_, err := execute(t, mock, "remove", "a", "b", "--force", "--autoremove")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
	assert.True(t, captured.Force)
	assert.True(t, captured.Autoremove)
	assert.False(t, captured.DryRun)

	_, err = execute(t, mock, "rm", "a", "-n")
	require.NoError(t, err)
	assert.True(t, captured.DryRun)
	assert.False(t, captured.Force)
}

func TestCommands_Upgrade(t *testing.T) {
	t.Run("passes names", func(t *testing.T) {
		var captured app.UpgradeOptions
		var names []string
		mock := &mockApp{
			upgradeFunc: func(_ context.Context, n []string, opts app.UpgradeOptions) error {
				names = n
				captured = opts
				return nil
			},
		}

		_, err := execute(t, mock, "upgrade", "wget")
		require.NoError(t, err)
		assert.Equal(t, []string{"wget"}, names)
		assert.False(t, captured.All)
	})

	t.Run("upgrades everything with --all", func(t *testing.T) {
		var captured app.UpgradeOptions
		mock := &mockApp{
			upgradeFunc: func(_ context.Context, _ []string, opts app.UpgradeOptions) error {
				captured = opts
				return nil
			},
		}

		_, err := execute(t, mock, "upgrade", "--all", "--no-wait")
		require.NoError(t, err)
		assert.True(t, captured.All)
		assert.True(t, captured.NoWait)
	})

	t.Run("shows usage when no targets provided", func(t *testing.T) {
		mock := &mockApp{
			upgradeFunc: func(_ context.Context, _ []string, _ app.UpgradeOptions) error {
				panic("should not be called")
			},
		}

		out, err := execute(t, mock, "upgrade")
		require.NoError(t, err)
		assert.Contains(t, out, "Usage:")
	})
}

func TestCommands_Queries(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"list"}, want: "list"},
		{args: []string{"ls"}, want: "list"},
		{args: []string{"why", "openssl"}, want: "why openssl"},
		{args: []string{"info", "openssl"}, want: "info openssl"},
		{args: []string{"verify"}, want: "verify"},
		{args: []string{"cleanup"}, want: "cleanup"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			mock := &mockApp{}
			_, err := execute(t, mock, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, mock.calls)
		})
	}
}

func TestCommands_Cleanup(t *testing.T) {
	var captured app.CleanupOptions
	mock := &mockApp{
		cleanupFunc: func(_ context.Context, opts app.CleanupOptions) error {
			captured = opts
			return nil
		},
	}

	_, err := execute(t, mock, "cleanup", "--no-wait")
	require.NoError(t, err)
	assert.True(t, captured.NoWait)

	_, err = execute(t, mock, "cleanup", "extra")
	require.Error(t, err)
}

func TestCommands_Version(t *testing.T) {
	out, err := execute(t, &mockApp{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "keg version "+build.Version)

	out, err = execute(t, &mockApp{}, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "keg version "+build.Version)
}
