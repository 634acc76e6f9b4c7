// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/nodesel/nodesel/internal/issue"
	"github.com/nodesel/nodesel/pkg/platform"
)

const (
	// AppName is the application name.
	AppName = "nodesel"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment variables overriding file values,
	// e.g. NODESEL_PROBE_TIMEOUT or NODESEL_CONTAINER_EXTERNALS_MOUNT_HOST.
	EnvPrefix = "NODESEL"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the nodesel configuration directory: %APPDATA% on
// Windows, ~/Library/Application Support on macOS and $XDG_CONFIG_HOME
// (defaulting to ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions loads defaults, the config file and NODESEL_ environment
// overrides, in increasing precedence. It returns the file used, if any.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("externals_dir", defaults.ExternalsDir)
	v.SetDefault("container_engine", string(defaults.ContainerEngine))
	v.SetDefault("probe_timeout", defaults.ProbeTimeout)
	v.SetDefault("log_level", string(defaults.LogLevel))
	v.SetDefault("knobs", defaults.Knobs)
	v.SetDefault("container.externals_mount.host", defaults.Container.ExternalsMount.Host)
	v.SetDefault("container.externals_mount.container", defaults.Container.ExternalsMount.Container)
	v.SetDefault("telemetry.otlp_endpoint", defaults.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.sample_rate", defaults.Telemetry.SampleRate)
	v.SetDefault("telemetry.metrics_file", defaults.Telemetry.MetricsFile)

	path, found, err := resolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	if opts.ConfigFilePath != "" && !found {
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(opts.ConfigFilePath).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'nodesel config dump' to see the default configuration").
			Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
			BuildError()
	}

	if found {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				Wrap(err).
				BuildError()
		}
	} else {
		path = ""
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", issue.WrapWithOperation(err, "decode configuration")
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Knob names must match 'nodesel knobs'").
			WithSuggestion("externals_dir and the mount paths must be absolute").
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, path, nil
}

// resolvePath returns the config file to read and whether it exists. An
// explicit file wins over the config directory, which wins over ./config.cue.
func resolvePath(opts LoadOptions) (string, bool, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, fileExists(opts.ConfigFilePath), nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		var err error
		if cfgDir, err = ConfigDir(); err != nil {
			return "", false, err
		}
	}

	cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(cuePath) {
		return cuePath, true, nil
	}
	if opts.SkipWorkingDir {
		return cuePath, false, nil
	}
	local := ConfigFileName + "." + ConfigFileExt
	if fileExists(local) {
		return local, true, nil
	}
	return cuePath, false, nil
}

// loadCUEIntoViper validates the CUE file at path and merges it into v,
// keeping defaults and environment overrides in place.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	m, err := decodeCUE(data, path)
	if err != nil {
		return err
	}
	if err := v.MergeConfigMap(m); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration to the config file
// unless one already exists. It returns the file path.
func CreateDefaultConfig(opts LoadOptions) (string, error) {
	path, found, err := resolvePath(LoadOptions{
		ConfigFilePath: opts.ConfigFilePath,
		ConfigDirPath:  opts.ConfigDirPath,
		SkipWorkingDir: true,
	})
	if err != nil {
		return "", err
	}
	if found {
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

// GenerateCUE renders cfg in the config file format.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// nodesel configuration file\n\n")
	fmt.Fprintf(&sb, "externals_dir: %q\n", cfg.ExternalsDir)
	fmt.Fprintf(&sb, "container_engine: %q\n", cfg.ContainerEngine)
	fmt.Fprintf(&sb, "probe_timeout: %q\n", cfg.ProbeTimeout.String())
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)

	if len(cfg.Knobs) > 0 {
		sb.WriteString("\nknobs: {\n")
		for _, k := range slices.Sorted(maps.Keys(cfg.Knobs)) {
			fmt.Fprintf(&sb, "\t%s: %q\n", strings.ToUpper(k), cfg.Knobs[k])
		}
		sb.WriteString("}\n")
	}

	sb.WriteString("\ncontainer: {\n")
	sb.WriteString("\texternals_mount: {\n")
	if cfg.Container.ExternalsMount.Host != "" {
		fmt.Fprintf(&sb, "\t\thost: %q\n", cfg.Container.ExternalsMount.Host)
	}
	fmt.Fprintf(&sb, "\t\tcontainer: %q\n", cfg.Container.ExternalsMount.Container)
	sb.WriteString("\t}\n")
	sb.WriteString("}\n")

	sb.WriteString("\ntelemetry: {\n")
	if cfg.Telemetry.OTLPEndpoint != "" {
		fmt.Fprintf(&sb, "\totlp_endpoint: %q\n", cfg.Telemetry.OTLPEndpoint)
	}
	fmt.Fprintf(&sb, "\tsample_rate: %v\n", cfg.Telemetry.SampleRate)
	if cfg.Telemetry.MetricsFile != "" {
		fmt.Fprintf(&sb, "\tmetrics_file: %q\n", cfg.Telemetry.MetricsFile)
	}
	sb.WriteString("}\n")

	return sb.String()
}

type (
	tomlView struct {
		ExternalsDir    string            `toml:"externals_dir"`
		ContainerEngine string            `toml:"container_engine"`
		ProbeTimeout    string            `toml:"probe_timeout"`
		LogLevel        string            `toml:"log_level"`
		Knobs           map[string]string `toml:"knobs,omitempty"`
		Container       tomlContainerView `toml:"container"`
		Telemetry       TelemetryConfig   `toml:"telemetry"`
	}

	tomlContainerView struct {
		ExternalsMount MountConfig `toml:"externals_mount"`
	}
)

// DumpTOML renders cfg as TOML. Durations are written in time.Duration string form.
func DumpTOML(cfg *Config) ([]byte, error) {
	view := tomlView{
		ExternalsDir:    cfg.ExternalsDir,
		ContainerEngine: string(cfg.ContainerEngine),
		ProbeTimeout:    cfg.ProbeTimeout.String(),
		LogLevel:        string(cfg.LogLevel),
		Knobs:           map[string]string(cfg.KnobSource()),
		Container:       tomlContainerView{ExternalsMount: cfg.Container.ExternalsMount},
		Telemetry:       cfg.Telemetry,
	}
	out, err := toml.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config as TOML: %w", err)
	}
	return out, nil
}
