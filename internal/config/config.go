// Package config loads mtpd's static configuration: storage roots, the
// FunctionFS mount point, device identity, and the ambient logging/
// telemetry/metrics knobs. Precedence follows the teacher's layered
// scheme: CLI flags > environment variables (MTPD_*) > config file >
// defaults (pkg/config/config.go in the teacher repo).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/mtpd/internal/bytesize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is mtpd's top-level configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics controls the Prometheus metrics HTTP endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ShutdownTimeout bounds how long Run waits for in-flight work to
	// drain after a stop signal.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// FunctionFS configures the USB gadget function mount point.
	FunctionFS FunctionFSConfig `mapstructure:"functionfs" yaml:"functionfs"`

	// Device carries the GetDeviceInfo identity fields advertised to the
	// host (spec.md §4.1 vendor extension dataset).
	Device DeviceConfig `mapstructure:"device" yaml:"device"`

	// Storages lists every storage root to mount (spec.md §4.3.1).
	Storages []StorageConfig `mapstructure:"storages" yaml:"storages"`

	// StateDir holds the PUOID databases, the device-info XML template,
	// and the thumbnail cache (spec.md §6 "$HOME/.local/mtp",
	// "$HOME/.cache/mtp").
	StateDir string `mapstructure:"state_dir" yaml:"state_dir"`
	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir"`
}

// LoggingConfig controls logging behavior (mirrors the teacher's
// pkg/config.LoggingConfig).
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`

	// Profiling controls Pyroscope continuous profiling, sent alongside
	// traces to the same observability backend.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig configures Pyroscope continuous profiling
// (internal/telemetry.ProfilingConfig).
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server. When
// Enabled is false, internal/metrics records nothing (zero overhead).
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// FunctionFSConfig names the gadget mount point internal/transport/
// functionfs drives (spec.md §4.5.1).
type FunctionFSConfig struct {
	MountPoint string `mapstructure:"mount_point" yaml:"mount_point"`
}

// DeviceConfig supplies the static GetDeviceInfo identity fields
// (spec.md §4.1, MTP 1.1 §5.1.1).
type DeviceConfig struct {
	Manufacturer  string `mapstructure:"manufacturer" yaml:"manufacturer"`
	Model         string `mapstructure:"model" yaml:"model"`
	DeviceVersion string `mapstructure:"device_version" yaml:"device_version"`
	SerialNumber  string `mapstructure:"serial_number" yaml:"serial_number"`
}

// StorageConfig describes one storage root to mount (spec.md §4.3.1).
type StorageConfig struct {
	ID          uint32   `mapstructure:"id" yaml:"id"`
	Root        string   `mapstructure:"root" validate:"required" yaml:"root"`
	Description string   `mapstructure:"description" yaml:"description"`
	VolumeLabel string   `mapstructure:"volume_label" yaml:"volume_label"`
	FSUUID      string   `mapstructure:"fs_uuid" yaml:"fs_uuid"`
	// MaxCapacity accepts human-readable sizes ("64GB", "1Ti") as well
	// as plain byte counts (spec.md §4.3.1 "the StorageInfo dataset's
	// MaxCapacity and FreeSpaceInBytes").
	MaxCapacity bytesize.ByteSize `mapstructure:"max_capacity" yaml:"max_capacity"`
	ReadOnly    bool     `mapstructure:"read_only" yaml:"read_only"`
	Excluded    []string `mapstructure:"excluded" yaml:"excluded"`
}

// Load loads configuration from the config file, lets MTPD_* environment
// variables override the file's keys (a key's dots become underscores,
// e.g. MTPD_LOGGING_LEVEL for logging.level), then fills anything still
// unset from the defaults (teacher's pkg/config.Load). When no config
// file is found it returns DefaultConfig without consulting the
// environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	))); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// MustLoad loads configuration, producing a user-facing error with
// setup instructions when the requested file is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize one first:\n  mtpd init\n\n"+
				"Or specify a custom config file:\n  mtpd start --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create it:\n  mtpd init --config %s", configPath, configPath)
	}
	return Load(configPath)
}

// SaveConfig writes cfg to path in YAML, creating parent directories as
// needed (teacher's pkg/config.SaveConfig).
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

// sampleConfig returns a starter Config for `mtpd init`: defaults applied,
// plus one commented-out-in-spirit storage root the operator is expected
// to edit (spec.md §4.3.1 requires at least one mounted storage, but Load
// itself does not invent a root directory).
func sampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Device.Manufacturer = "mtpd"
	cfg.Device.Model = "Generic MTP Responder"
	cfg.Device.DeviceVersion = "1.0"
	cfg.Device.SerialNumber = "000000000000"
	cfg.Storages = []StorageConfig{
		{
			ID:          1,
			Root:        filepath.Join(os.Getenv("HOME"), "mtp-share"),
			Description: "Internal storage",
			VolumeLabel: "mtpd",
		},
	}
	return cfg
}

// InitConfig writes a sample configuration file to the default location,
// refusing to overwrite an existing file unless force is set.
func InitConfig(force bool) (string, error) {
	return InitConfigToPath(GetDefaultConfigPath(), force)
}

// InitConfigToPath writes a sample configuration file to path, refusing
// to overwrite an existing file unless force is set.
func InitConfigToPath(path string, force bool) (string, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}
	if err := SaveConfig(sampleConfig(), path); err != nil {
		return "", err
	}
	return path, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("MTPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(GetConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read file: %w", err)
	}
	return true, nil
}

// durationDecodeHook lets config files and MTPD_* env vars use
// human-readable durations ("30s", "5m") for time.Duration fields,
// mirroring the teacher's mapstructure decode-hook pattern.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// byteSizeDecodeHook lets config files and MTPD_* env vars use
// human-readable byte sizes ("64GB", "1Ti") for bytesize.ByteSize
// fields, mirroring the teacher's mapstructure decode-hook pattern.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// GetConfigDir returns $XDG_CONFIG_HOME/mtpd, falling back to
// ~/.config/mtpd, or "." if the home directory can't be resolved.
func GetConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mtpd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mtpd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
