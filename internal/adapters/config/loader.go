// Package config loads keg settings from defaults, an optional YAML file and
// KEG_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/zerr"
)

// EnvPrefix is the prefix of every environment variable keg reads.
const EnvPrefix = "KEG"

const (
	keyRoot           = "root"
	keyTaps           = "taps"
	keyPolicy         = "policy"
	keyFetchTimeout   = "fetch_timeout"
	keyExtractTimeout = "extract_timeout"
	keyParallelism    = "parallelism"
	keyLogLevel       = "log_level"
	keyProgress       = "progress"
	keyDebug          = "debug"
	keyConfig         = "config"
)

// TapsDirName is the default formula directory inside the store root.
const TapsDirName = "taps"

// Load resolves the settings. configFile overrides the location of the
// settings file; when empty, KEG_CONFIG and then <root>/config.yaml are used.
// A missing default settings file is not an error.
func Load(configFile string) (domain.Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	defaults := domain.DefaultSettings()
	v.SetDefault(keyRoot, defaults.Root)
	v.SetDefault(keyPolicy, string(defaults.Policy))
	v.SetDefault(keyFetchTimeout, defaults.FetchTimeout)
	v.SetDefault(keyExtractTimeout, defaults.ExtractTimeout)
	v.SetDefault(keyParallelism, defaults.Parallelism)
	v.SetDefault(keyLogLevel, defaults.LogLevel.String())
	v.SetDefault(keyProgress, false)
	v.SetDefault(keyDebug, false)

	path, explicit := configFile, configFile != ""
	if path == "" {
		if env := v.GetString(keyConfig); env != "" {
			path, explicit = env, true
		} else {
			path = filepath.Join(expandHome(v.GetString(keyRoot)), domain.ConfigFileName)
		}
	}
	if err := readConfigFile(v, path, explicit); err != nil {
		return domain.Settings{}, err
	}

	return decode(v)
}

func readConfigFile(v *viper.Viper, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to parse config file"), "path", path)
	}
	return nil
}

func decode(v *viper.Viper) (domain.Settings, error) {
	root := expandHome(v.GetString(keyRoot))
	if root == "" {
		return domain.Settings{}, zerr.New("store root must not be empty")
	}

	policy, err := domain.ParsePolicy(v.GetString(keyPolicy))
	if err != nil {
		return domain.Settings{}, err
	}

	s := domain.Settings{
		Root:           root,
		Taps:           taps(v, root),
		Policy:         policy,
		FetchTimeout:   v.GetDuration(keyFetchTimeout),
		ExtractTimeout: v.GetDuration(keyExtractTimeout),
		Parallelism:    v.GetInt(keyParallelism),
		LogLevel:       domain.ParseLogLevel(v.GetString(keyLogLevel)),
		Progress:       v.GetBool(keyProgress),
		Debug:          v.GetBool(keyDebug),
	}

	switch {
	case s.FetchTimeout <= 0:
		return domain.Settings{}, zerr.With(zerr.New("fetch timeout must be positive"), "value", v.GetString(keyFetchTimeout))
	case s.ExtractTimeout <= 0:
		return domain.Settings{}, zerr.With(zerr.New("extract timeout must be positive"), "value", v.GetString(keyExtractTimeout))
	case s.Parallelism <= 0:
		return domain.Settings{}, zerr.With(zerr.New("parallelism must be positive"), "value", v.GetString(keyParallelism))
	}

	return s, nil
}

// taps reads the formula directories. The environment form is a
// path-list-separated string; the file form is a YAML list.
func taps(v *viper.Viper, root string) []string {
	var dirs []string
	switch raw := v.Get(keyTaps).(type) {
	case string:
		dirs = filepath.SplitList(raw)
	case nil:
	default:
		dirs = v.GetStringSlice(keyTaps)
	}

	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, expandHome(d))
		}
	}
	if len(out) == 0 {
		out = append(out, filepath.Join(root, TapsDirName))
	}
	return out
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
