package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = 8080
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50

	// DefaultHost is the wildcard bind address used for every listener.
	DefaultHost = "0.0.0.0"
)

// Environment variable names consumed by Resolve.
const (
	EnvPort        = "PORT"
	EnvLogLevel    = "LOG_LEVEL"
	EnvLogFile     = "LOG_FILE"
	EnvAppEnv      = "APP_ENV"
	EnvReload      = "RELOAD"
	EnvWatchPaths  = "WATCH_PATHS"
	EnvDatabaseURL = "DATABASE_URL"
)

// Config aggregates the runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults.
// The value is constructed once by Resolve and never mutated afterwards.
type Config struct {
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	Host     string `yaml:"-" validate:"required"`
	LogLevel string `yaml:"log_level" validate:"oneof=error info debug"`
	LogFile  string `yaml:"log_file"`

	// Environment is the deployment environment name (APP_ENV). It is
	// surfaced in diagnostics only; the single exception is that
	// "development" switches reload mode on.
	Environment string `yaml:"-"`

	ReloadEnabled bool     `yaml:"reload"`
	WatchPaths    []string `yaml:"watch_paths"`

	// HasDatabaseURL records whether DATABASE_URL was set and non-empty.
	// The value itself is dropped during resolution and never retained.
	HasDatabaseURL bool `yaml:"-"`

	ShutdownGracePeriod time.Duration `yaml:"-"`
	ReadHeaderTimeout   time.Duration `yaml:"-"`
	WriteTimeout        time.Duration `yaml:"-"`
	IdleTimeout         time.Duration `yaml:"-"`

	EnableRequestLogging bool    `yaml:"enable_request_logging"`
	RateLimitRPS         float64 `yaml:"-"`
	RateLimitBurst       int     `yaml:"-"`

	// Warnings collects non-fatal resolution issues (invalid values that
	// fell back to defaults). Resolve itself never logs; the caller decides
	// how to surface these.
	Warnings []string `yaml:"-"`
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 int           `yaml:"port"`
	LogLevel             string        `yaml:"log_level"`
	LogFile              string        `yaml:"log_file"`
	Reload               *bool         `yaml:"reload"`
	WatchPaths           []string      `yaml:"watch_paths"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile string
	Port       *int
	LogLevel   *string
	Watch      *bool
	WatchPaths []string
}

// Resolve derives a Config from the supplied environment snapshot with
// precedence: CLI flags > YAML config > Environment variables > Defaults.
// Invalid or out-of-range environment values never fail resolution; they
// fall back to the documented default and leave a warning on the Config.
func Resolve(snap Snapshot, overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	applyEnvConfig(&cfg, snap)

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if cfg.ReloadEnabled && len(cfg.WatchPaths) == 0 {
		cfg.WatchPaths = []string{ApplicationRoot()}
	}

	if err := validateStruct(&cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		Host:                 DefaultHost,
		LogLevel:             "info",
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.Port >= 1 && yamlCfg.Port <= 65535 {
		cfg.Port = yamlCfg.Port
	}

	if lvl, ok := normalizeLogLevel(yamlCfg.LogLevel); ok {
		cfg.LogLevel = lvl
	}

	if yamlCfg.LogFile != "" {
		cfg.LogFile = yamlCfg.LogFile
	}

	if yamlCfg.Reload != nil {
		cfg.ReloadEnabled = *yamlCfg.Reload
	}

	if len(yamlCfg.WatchPaths) > 0 {
		cfg.WatchPaths = yamlCfg.WatchPaths
	}

	if yamlCfg.ShutdownGracePeriod != "" {
		if d, err := time.ParseDuration(yamlCfg.ShutdownGracePeriod); err == nil {
			cfg.ShutdownGracePeriod = d
		}
	}

	if yamlCfg.ReadHeaderTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.ReadHeaderTimeout); err == nil {
			cfg.ReadHeaderTimeout = d
		}
	}

	if yamlCfg.WriteTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.WriteTimeout); err == nil {
			cfg.WriteTimeout = d
		}
	}

	if yamlCfg.IdleTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.IdleTimeout); err == nil {
			cfg.IdleTimeout = d
		}
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil && *yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil && *yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}
}

// applyEnvConfig applies environment variable configuration from the snapshot.
func applyEnvConfig(cfg *Config, snap Snapshot) {
	if raw, ok := snap.Lookup(EnvPort); ok {
		port, err := strconv.Atoi(strings.TrimSpace(raw))
		switch {
		case err != nil:
			cfg.warnf("%s=%q is not an integer, using default %d", EnvPort, raw, defaultPort)
		case port < 1 || port > 65535:
			cfg.warnf("%s=%d is outside 1-65535, using default %d", EnvPort, port, defaultPort)
		default:
			cfg.Port = port
		}
	}

	if raw, ok := snap.Lookup(EnvLogLevel); ok {
		if lvl, valid := normalizeLogLevel(raw); valid {
			cfg.LogLevel = lvl
		} else {
			cfg.warnf("%s=%q is not one of error, info, debug; using info", EnvLogLevel, raw)
		}
	}

	if file := strings.TrimSpace(snap.Get(EnvLogFile)); file != "" {
		cfg.LogFile = file
	}

	cfg.Environment = strings.TrimSpace(snap.Get(EnvAppEnv))
	if strings.EqualFold(cfg.Environment, "development") {
		cfg.ReloadEnabled = true
	}

	if raw, ok := snap.Lookup(EnvReload); ok {
		if enabled, err := parseBool(raw); err == nil {
			cfg.ReloadEnabled = enabled
		} else {
			cfg.warnf("%s=%q is not a boolean, ignoring", EnvReload, raw)
		}
	}

	if raw := strings.TrimSpace(snap.Get(EnvWatchPaths)); raw != "" {
		cfg.WatchPaths = splitWatchPaths(raw)
	}

	cfg.HasDatabaseURL = strings.TrimSpace(snap.Get(EnvDatabaseURL)) != ""

	if rps := strings.TrimSpace(snap.Get("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(snap.Get("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port >= 1 && *overrides.Port <= 65535 {
		cfg.Port = *overrides.Port
	}

	if overrides.LogLevel != nil {
		if lvl, ok := normalizeLogLevel(*overrides.LogLevel); ok {
			cfg.LogLevel = lvl
		} else {
			cfg.warnf("--log-level=%q is not one of error, info, debug; keeping %s", *overrides.LogLevel, cfg.LogLevel)
		}
	}

	if overrides.Watch != nil {
		cfg.ReloadEnabled = *overrides.Watch
	}

	if len(overrides.WatchPaths) > 0 {
		cfg.WatchPaths = overrides.WatchPaths
	}
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// normalizeLogLevel lower-cases and validates a log level string.
func normalizeLogLevel(raw string) (string, bool) {
	switch lvl := strings.ToLower(strings.TrimSpace(raw)); lvl {
	case "error", "info", "debug":
		return lvl, true
	default:
		return "", false
	}
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	default:
		return strconv.ParseBool(strings.TrimSpace(raw))
	}
}

// splitWatchPaths splits a list-separated WATCH_PATHS value, dropping empties.
func splitWatchPaths(raw string) []string {
	parts := strings.Split(raw, string(os.PathListSeparator))
	paths := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			paths = append(paths, part)
		}
	}
	return paths
}

// ApplicationRoot locates the application root by walking up from the
// working directory until a go.mod or .env marker is found. Falls back to
// the working directory itself.
func ApplicationRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}

	probe := dir
	for {
		for _, marker := range []string{"go.mod", ".env"} {
			if _, err := os.Stat(filepath.Join(probe, marker)); err == nil {
				return probe
			}
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}

	return dir
}
