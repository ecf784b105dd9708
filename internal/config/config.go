// Package config loads dirpie settings from defaults, an optional YAML file,
// DIRPIE_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sadopc/dirpie/internal/logging"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "DIRPIE"

// Keys.
const (
	KeyWorkers         = "workers"
	KeyCapBytes        = "cap_bytes"
	KeyRefreshInterval = "refresh_interval"
	KeyWatch           = "watch"
	KeyWatchDebounce   = "watch_debounce"
	KeyMetricsAddr     = "metrics_addr"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
	KeyLogFile         = "log.file"
	KeySSHPort         = "ssh.port"
	KeySSHBatch        = "ssh.batch"
	KeySSHTimeout      = "ssh.timeout"
)

// SSH holds settings for remote scans.
type SSH struct {
	Port    int
	Batch   bool
	Timeout time.Duration
}

// Config is the validated configuration.
type Config struct {
	Workers         int
	CapBytes        uint64
	RefreshInterval time.Duration
	Watch           bool
	WatchDebounce   time.Duration
	MetricsAddr     string
	Log             logging.Config
	SSH             SSH
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyWorkers, 2)
	v.SetDefault(KeyCapBytes, int64(5<<30))
	v.SetDefault(KeyRefreshInterval, 30*time.Second)
	v.SetDefault(KeyWatch, false)
	v.SetDefault(KeyWatchDebounce, 500*time.Millisecond)
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeySSHPort, 22)
	v.SetDefault(KeySSHBatch, false)
	v.SetDefault(KeySSHTimeout, 15*time.Second)
}

// NewViper returns a viper instance with defaults and environment overrides.
// When file is empty the default config file is read if it exists.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	explicit := file != ""
	if !explicit {
		file = DefaultFile()
		if _, err := os.Stat(file); err != nil {
			return v, nil
		}
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", file, err)
	}
	return v, nil
}

// DefaultFile returns $XDG_CONFIG_HOME/dirpie/config.yaml or its platform
// equivalent.
func DefaultFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dirpie", "config.yaml")
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	capBytes := v.GetInt64(KeyCapBytes)
	cfg := Config{
		Workers:         v.GetInt(KeyWorkers),
		RefreshInterval: v.GetDuration(KeyRefreshInterval),
		Watch:           v.GetBool(KeyWatch),
		WatchDebounce:   v.GetDuration(KeyWatchDebounce),
		MetricsAddr:     v.GetString(KeyMetricsAddr),
		Log: logging.Config{
			Level:      v.GetString(KeyLogLevel),
			Format:     v.GetString(KeyLogFormat),
			OutputPath: v.GetString(KeyLogFile),
		},
		SSH: SSH{
			Port:    v.GetInt(KeySSHPort),
			Batch:   v.GetBool(KeySSHBatch),
			Timeout: v.GetDuration(KeySSHTimeout),
		},
	}

	var errs []error
	if cfg.Workers < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyWorkers, cfg.Workers))
	}
	if capBytes < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %d", KeyCapBytes, capBytes))
	} else {
		cfg.CapBytes = uint64(capBytes)
	}
	if cfg.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %s", KeyRefreshInterval, cfg.RefreshInterval))
	}
	if cfg.WatchDebounce < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %s", KeyWatchDebounce, cfg.WatchDebounce))
	}
	if cfg.SSH.Port < 1 || cfg.SSH.Port > 65535 {
		errs = append(errs, fmt.Errorf("%s must be between 1 and 65535, got %d", KeySSHPort, cfg.SSH.Port))
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("%s must be json or console, got %q", KeyLogFormat, cfg.Log.Format))
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return cfg, nil
}
