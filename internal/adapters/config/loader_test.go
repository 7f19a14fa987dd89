package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/adapters/config"
	"go.trai.ch/keg/internal/core/domain"
)

// isolate points every KEG_* variable at a clean state.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, key := range []string{"ROOT", "TAPS", "POLICY", "FETCH_TIMEOUT", "EXTRACT_TIMEOUT", "PARALLELISM", "LOG_LEVEL", "PROGRESS", "DEBUG", "CONFIG"} {
		t.Setenv("KEG_"+key, "")
		require.NoError(t, os.Unsetenv("KEG_"+key))
	}
	t.Setenv("KEG_ROOT", root)
	return root
}

func TestLoad_Defaults(t *testing.T) {
	root := isolate(t)

	s, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, root, s.Root)
	assert.Equal(t, []string{filepath.Join(root, config.TapsDirName)}, s.Taps)
	assert.Equal(t, domain.PolicyMinimalChurn, s.Policy)
	assert.Equal(t, domain.DefaultSettings().FetchTimeout, s.FetchTimeout)
	assert.Equal(t, domain.DefaultSettings().Parallelism, s.Parallelism)
	assert.Equal(t, domain.LogLevelInfo, s.LogLevel)
	assert.False(t, s.Progress)
	assert.False(t, s.Debug)
}

func TestLoad_Environment(t *testing.T) {
	root := isolate(t)
	tapA := filepath.Join(root, "a")
	tapB := filepath.Join(root, "b")
	t.Setenv("KEG_TAPS", strings.Join([]string{tapA, tapB}, string(os.PathListSeparator)))
	t.Setenv("KEG_POLICY", "latest")
	t.Setenv("KEG_FETCH_TIMEOUT", "30s")
	t.Setenv("KEG_PARALLELISM", "8")
	t.Setenv("KEG_LOG_LEVEL", "warn")
	t.Setenv("KEG_PROGRESS", "1")
	t.Setenv("KEG_DEBUG", "true")

	s, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{tapA, tapB}, s.Taps)
	assert.Equal(t, domain.PolicyLatest, s.Policy)
	assert.Equal(t, 30*time.Second, s.FetchTimeout)
	assert.Equal(t, 8, s.Parallelism)
	assert.Equal(t, domain.LogLevelWarn, s.LogLevel)
	assert.True(t, s.Progress)
	assert.True(t, s.Debug)
}

func TestLoad_ConfigFileInRoot(t *testing.T) {
	root := isolate(t)
	content := `
policy: latest
extract_timeout: 2m
taps:
  - /srv/formulae
  - /opt/more
`
	require.NoError(t, os.WriteFile(filepath.Join(root, domain.ConfigFileName), []byte(content), 0o600))

	s, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, domain.PolicyLatest, s.Policy)
	assert.Equal(t, 2*time.Minute, s.ExtractTimeout)
	assert.Equal(t, []string{"/srv/formulae", "/opt/more"}, s.Taps)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	root := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, domain.ConfigFileName), []byte("parallelism: 2\n"), 0o600))
	t.Setenv("KEG_PARALLELISM", "6")

	s, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 6, s.Parallelism)
}

func TestLoad_ExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parallelism: 3\n"), 0o600))

	s, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Parallelism)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("KEG_CONFIG", path)
	s, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Parallelism)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown policy", "KEG_POLICY", "newest"},
		{"zero parallelism", "KEG_PARALLELISM", "0"},
		{"negative timeout", "KEG_FETCH_TIMEOUT", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)
			_, err := config.Load("")
			assert.Error(t, err)
		})
	}

	t.Run("malformed file", func(t *testing.T) {
		root := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(root, domain.ConfigFileName), []byte("policy: [unclosed"), 0o600))
		_, err := config.Load("")
		assert.Error(t, err)
	})
}
