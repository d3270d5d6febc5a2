// Package config loads simctl settings from a YAML file, command-line
// flags and SIMCTL_* environment variables.
//
// Precedence, highest first: flag, environment, file, default.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"

	simerrors "github.com/wippyai/sim-bridge/errors"
)

// EnvPrefix is prepended to the upper-cased flag name to form the
// environment variable consulted for an unset flag.
const EnvPrefix = "SIMCTL_"

// Config holds bridge and console settings.
type Config struct {
	// ModelDir is searched for "<model>.wasm" artifacts. Empty disables
	// the artifact store; built-in Go designs are always available.
	ModelDir string `yaml:"model_dir"`
	// WaveDir resolves relative wave paths given to "new".
	WaveDir  string `yaml:"wave_dir"`
	LogLevel string `yaml:"log_level"`
	// Seed is used by "new" when no seed argument is given.
	Seed             uint64 `yaml:"seed"`
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ModelDir: "models",
		LogLevel: "warn",
	}
}

// ReadFile reads a YAML file over the defaults. Unknown keys are rejected.
func ReadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, simerrors.Wrap(simerrors.PhaseConfig, simerrors.KindIO, err, "read "+path)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, simerrors.Wrap(simerrors.PhaseConfig, simerrors.KindInvalidData, err, "parse "+path)
	}
	return cfg, nil
}

// BindFlags registers one flag per setting, writing into c.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ModelDir, "model-dir", c.ModelDir, "Directory holding <model>.wasm artifacts")
	fs.StringVar(&c.WaveDir, "wave-dir", c.WaveDir, "Directory for relative wave file paths")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error, off)")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "Default seed for new handles")
	fs.Uint32Var(&c.MemoryLimitPages, "memory-limit-pages", c.MemoryLimitPages, "Linear memory cap per wasm instance, in 64KiB pages")
}

// Load parses args into a configuration. The file named by --config (or
// SIMCTL_CONFIG) replaces the defaults; flags and environment variables
// override the file. It returns the remaining positional arguments.
func Load(fs *pflag.FlagSet, args []string) (*Config, []string, error) {
	cfg := Default()
	var path string
	fs.StringVar(&path, "config", "", "YAML configuration file")
	cfg.BindFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, nil, simerrors.Wrap(simerrors.PhaseConfig, simerrors.KindInvalidInput, err, "flags")
	}
	if err := ApplyEnv(fs, EnvPrefix); err != nil {
		return nil, nil, err
	}

	if path != "" {
		// Remember explicit settings, load the file, then put them back.
		explicit := make(map[string]string)
		fs.Visit(func(f *pflag.Flag) {
			explicit[f.Name] = f.Value.String()
		})

		file, err := ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = file

		for name, val := range explicit {
			if err := fs.Set(name, val); err != nil {
				return nil, nil, simerrors.Wrap(simerrors.PhaseConfig, simerrors.KindInvalidInput, err, name)
			}
		}
	}
	return &cfg, fs.Args(), nil
}

// ApplyEnv sets every flag that was not given on the command line from the
// environment variable prefix+NAME, with dashes turned into underscores.
// Flags set this way count as changed.
func ApplyEnv(fs *pflag.FlagSet, prefix string) error {
	unset := make(map[string]*pflag.Flag)
	fs.VisitAll(func(f *pflag.Flag) {
		unset[f.Name] = f
	})
	fs.Visit(func(f *pflag.Flag) {
		delete(unset, f.Name)
	})

	for name, f := range unset {
		val := os.Getenv(EnvName(name, prefix))
		if val == "" {
			continue
		}
		if err := fs.Set(name, val); err != nil {
			return simerrors.Wrap(simerrors.PhaseConfig, simerrors.KindInvalidInput, err,
				fmt.Sprintf("%s=%q", EnvName(name, prefix), val))
		}
		f.Changed = true
	}
	return nil
}

// EnvName returns the environment variable consulted for a flag.
func EnvName(flagName, prefix string) string {
	flagName = strings.ToUpper(flagName)
	flagName = strings.ReplaceAll(flagName, "-", "_")
	return fmt.Sprint(prefix, flagName)
}

// NewLogger builds a console logger at LogLevel. "off" or "" yields a
// no-op logger.
func (c *Config) NewLogger() (*zap.Logger, error) {
	if c.LogLevel == "" || c.LogLevel == "off" {
		return zap.NewNop(), nil
	}
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, simerrors.Wrap(simerrors.PhaseConfig, simerrors.KindInvalidInput, err, "log level")
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = true
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
