// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nodesel/nodesel/internal/container"
	"github.com/nodesel/nodesel/internal/glibc"
	"github.com/nodesel/nodesel/internal/knob"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogLevel is the sentinel error wrapped by InvalidLogLevelError.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrUnknownKnob is the sentinel error wrapped by UnknownKnobError.
	ErrUnknownKnob = errors.New("unknown knob")
	// ErrInvalidProbeTimeout is the sentinel error wrapped by InvalidProbeTimeoutError.
	ErrInvalidProbeTimeout = errors.New("invalid probe timeout")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level written by the CLI logger.
	LogLevel string

	// InvalidLogLevelError is returned for a LogLevel outside debug, info, warn and error.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// UnknownKnobError is returned when the knobs table names a knob nodesel does not know.
	UnknownKnobError struct {
		Name string
	}

	// InvalidProbeTimeoutError is returned for a non-positive probe timeout.
	InvalidProbeTimeoutError struct {
		Value time.Duration
	}

	// InvalidConfigError collects field-level validation errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ExternalsDir is the agent directory holding one folder per bundled runtime.
		ExternalsDir string `json:"externals_dir" mapstructure:"externals_dir"`
		// ContainerEngine selects the CLI used to probe job containers.
		ContainerEngine container.EngineType `json:"container_engine" mapstructure:"container_engine"`
		// ProbeTimeout bounds every `node --version` probe.
		ProbeTimeout time.Duration `json:"probe_timeout" mapstructure:"probe_timeout"`
		LogLevel     LogLevel      `json:"log_level" mapstructure:"log_level"`
		// Knobs holds the lowest-precedence knob values. Keys are matched
		// case-insensitively because viper folds map keys to lower case.
		Knobs     map[string]string `json:"knobs" mapstructure:"knobs"`
		Container ContainerConfig   `json:"container" mapstructure:"container"`
		Telemetry TelemetryConfig   `json:"telemetry" mapstructure:"telemetry"`
	}

	// ContainerConfig configures container mode.
	ContainerConfig struct {
		ExternalsMount MountConfig `json:"externals_mount" mapstructure:"externals_mount"`
	}

	// MountConfig describes where the externals directory is mounted in job containers.
	MountConfig struct {
		// Host defaults to ExternalsDir when empty.
		Host      string `json:"host" mapstructure:"host" toml:"host,omitempty"`
		Container string `json:"container" mapstructure:"container" toml:"container"`
	}

	// TelemetryConfig configures metrics and tracing.
	TelemetryConfig struct {
		OTLPEndpoint string  `json:"otlp_endpoint" mapstructure:"otlp_endpoint" toml:"otlp_endpoint,omitempty"`
		SampleRate   float64 `json:"sample_rate" mapstructure:"sample_rate" toml:"sample_rate"`
		MetricsFile  string  `json:"metrics_file" mapstructure:"metrics_file" toml:"metrics_file,omitempty"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ExternalsDir:    defaultExternalsDir(),
		ContainerEngine: container.EngineTypeDocker,
		ProbeTimeout:    glibc.DefaultProbeTimeout,
		LogLevel:        LogLevelInfo,
		Knobs:           map[string]string{},
		Container: ContainerConfig{
			ExternalsMount: MountConfig{
				Container: string(container.DefaultExternalsMountTarget),
			},
		},
		Telemetry: TelemetryConfig{
			SampleRate: 1,
		},
	}
}

// defaultExternalsDir is the externals folder next to the running binary.
func defaultExternalsDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "externals"
	}
	return filepath.Join(filepath.Dir(exe), "externals")
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// SlogLevel maps the level onto slog. Unknown levels map to Info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

func (e *UnknownKnobError) Error() string {
	return fmt.Sprintf("unknown knob %q", e.Name)
}

func (e *UnknownKnobError) Unwrap() error { return ErrUnknownKnob }

func (e *InvalidProbeTimeoutError) Error() string {
	return fmt.Sprintf("probe timeout must be positive, got %s", e.Value)
}

func (e *InvalidProbeTimeoutError) Unwrap() error { return ErrInvalidProbeTimeout }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// IsValid returns whether the Config has valid fields. It checks the engine,
// the log level, the probe timeout, every knob name and the mount pair.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if err := c.ContainerEngine.Validate(); err != nil {
		errs = append(errs, err)
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.ProbeTimeout <= 0 {
		errs = append(errs, &InvalidProbeTimeoutError{Value: c.ProbeTimeout})
	}
	for name := range c.Knobs {
		if _, ok := knob.Lookup(strings.ToUpper(name)); !ok {
			errs = append(errs, &UnknownKnobError{Name: name})
		}
	}
	if err := c.Mount().Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Mount returns the externals mount, defaulting the host side to ExternalsDir.
func (c Config) Mount() container.Mount {
	host := c.Container.ExternalsMount.Host
	if host == "" {
		host = c.ExternalsDir
	}
	return container.Mount{
		HostPath:      container.HostFilesystemPath(host),
		ContainerPath: container.MountTargetPath(c.Container.ExternalsMount.Container),
	}
}

// KnobSource serves the configured knobs with their canonical upper-case names.
func (c Config) KnobSource() knob.MapSource {
	src := make(knob.MapSource, len(c.Knobs))
	for k, v := range c.Knobs {
		src[strings.ToUpper(k)] = v
	}
	return src
}
