package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields, following the teacher's strategy: zero values are replaced,
// explicit values are preserved (pkg/config/defaults.go).
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyFunctionFSDefaults(&cfg.FunctionFS)
	applyDeviceDefaults(&cfg.Device)
	applyStateDefaults(cfg)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	// Note: no default for Storages. The operator must configure at
	// least one storage root (mtpd init writes a sensible starting
	// point, but Load itself does not invent a root directory).
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "inuse_objects"}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Addr == "" {
		cfg.Addr = ":9090"
	}
}

func applyFunctionFSDefaults(cfg *FunctionFSConfig) {
	if cfg.MountPoint == "" {
		cfg.MountPoint = "/dev/mtp_usb0"
	}
}

func applyDeviceDefaults(cfg *DeviceConfig) {
	if cfg.Manufacturer == "" {
		cfg.Manufacturer = "mtpd"
	}
	if cfg.Model == "" {
		cfg.Model = "mtpd responder"
	}
	if cfg.DeviceVersion == "" {
		cfg.DeviceVersion = "1.0"
	}
	if cfg.SerialNumber == "" {
		cfg.SerialNumber = "0000000000000000"
	}
}

// applyStateDefaults fills StateDir/CacheDir from XDG locations, mirroring
// spec.md §6's "$HOME/.local/mtp" / "$HOME/.cache/mtp" precedent.
func applyStateDefaults(cfg *Config) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if cfg.StateDir == "" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			cfg.StateDir = filepath.Join(xdg, "mtp")
		} else {
			cfg.StateDir = filepath.Join(home, ".local", "mtp")
		}
	}
	if cfg.CacheDir == "" {
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			cfg.CacheDir = filepath.Join(xdg, "mtp")
		} else {
			cfg.CacheDir = filepath.Join(home, ".cache", "mtp")
		}
	}
}

// DefaultConfig returns a Config populated entirely with defaults, used
// when no config file is present (e.g. a first `mtpd start` before
// `mtpd init` has run).
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
