package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultMaxTarget      = 1_000_000
	defaultMaxStock       = 10_000
	defaultMaxEntries     = 20
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultSolveRPS       = 2.0
	defaultSolveBurst     = 5
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	LogLevel             string
	DataFile             string
	MaxTarget            int
	MaxStock             int
	MaxEntries           int
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	// SolveRPS and SolveBurst size the extra bucket in front of the solver.
	SolveRPS   float64
	SolveBurst int
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	LogLevel             string        `yaml:"log_level"`
	DataFile             string        `yaml:"data_file"`
	Limits               yamlLimits    `yaml:"limits"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlLimits bounds the solver input accepted over HTTP.
type yamlLimits struct {
	MaxTarget int `yaml:"max_target"`
	MaxStock   int `yaml:"max_stock"`
	MaxEntries int `yaml:"max_entries"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS        *float64 `yaml:"rps"`
	Burst      *int     `yaml:"burst"`
	SolveRPS   *float64 `yaml:"solve_rps"`
	SolveBurst *int     `yaml:"solve_burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	LogLevel       *string
	DataFile       *string
	MaxTarget      *int
	MaxStock       *int
	MaxEntries     *int
	RateLimitRPS   *float64
	RateLimitBurst *int
	SolveRPS       *float64
	SolveBurst     *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		LogLevel:             defaultLogLevel,
		MaxTarget:            defaultMaxTarget,
		MaxStock:             defaultMaxStock,
		MaxEntries:           defaultMaxEntries,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		SolveRPS:             defaultSolveRPS,
		SolveBurst:           defaultSolveBurst,
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
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if yamlCfg.DataFile != "" {
		cfg.DataFile = yamlCfg.DataFile
	}

	if yamlCfg.Limits.MaxTarget > 0 {
		cfg.MaxTarget = yamlCfg.Limits.MaxTarget
	}

	if yamlCfg.Limits.MaxStock > 0 {
		cfg.MaxStock = yamlCfg.Limits.MaxStock
	}

	if yamlCfg.Limits.MaxEntries > 0 {
		cfg.MaxEntries = yamlCfg.Limits.MaxEntries
	}

	durations := []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{yamlCfg.ShutdownGracePeriod, "shutdown_grace_period", &cfg.ShutdownGracePeriod},
		{yamlCfg.ReadHeaderTimeout, "read_header_timeout", &cfg.ReadHeaderTimeout},
		{yamlCfg.WriteTimeout, "write_timeout", &cfg.WriteTimeout},
		{yamlCfg.IdleTimeout, "idle_timeout", &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.RateLimit.SolveRPS != nil {
		cfg.SolveRPS = *yamlCfg.RateLimit.SolveRPS
	}

	if yamlCfg.RateLimit.SolveBurst != nil {
		cfg.SolveBurst = *yamlCfg.RateLimit.SolveBurst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if dataFile := strings.TrimSpace(os.Getenv("DATA_FILE")); dataFile != "" {
		cfg.DataFile = dataFile
	}

	if raw := strings.TrimSpace(os.Getenv("MAX_TARGET")); raw != "" {
		value, err := parsePositiveInt(raw)
		if err != nil {
			return fmt.Errorf("MAX_TARGET: %w", err)
		}
		cfg.MaxTarget = value
	}

	if raw := strings.TrimSpace(os.Getenv("MAX_STOCK")); raw != "" {
		value, err := parsePositiveInt(raw)
		if err != nil {
			return fmt.Errorf("MAX_STOCK: %w", err)
		}
		cfg.MaxStock = value
	}

	if raw := strings.TrimSpace(os.Getenv("MAX_ENTRIES")); raw != "" {
		value, err := parsePositiveInt(raw)
		if err != nil {
			return fmt.Errorf("MAX_ENTRIES: %w", err)
		}
		cfg.MaxEntries = value
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if rps := strings.TrimSpace(os.Getenv("SOLVE_RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.SolveRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("SOLVE_RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.SolveBurst = value
		}
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.DataFile != nil && *overrides.DataFile != "" {
		cfg.DataFile = *overrides.DataFile
	}

	if overrides.MaxTarget != nil && *overrides.MaxTarget > 0 {
		cfg.MaxTarget = *overrides.MaxTarget
	}

	if overrides.MaxStock != nil && *overrides.MaxStock > 0 {
		cfg.MaxStock = *overrides.MaxStock
	}

	if overrides.MaxEntries != nil && *overrides.MaxEntries > 0 {
		cfg.MaxEntries = *overrides.MaxEntries
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.SolveRPS != nil && *overrides.SolveRPS >= 0 {
		cfg.SolveRPS = *overrides.SolveRPS
	}

	if overrides.SolveBurst != nil && *overrides.SolveBurst >= 0 {
		cfg.SolveBurst = *overrides.SolveBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.SolveRPS < 0 {
		return fmt.Errorf("SOLVE_RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.SolveBurst < 0 {
		return fmt.Errorf("SOLVE_RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.MaxTarget <= 0 {
		return fmt.Errorf("max target must be positive")
	}
	if cfg.MaxStock <= 0 {
		return fmt.Errorf("max stock must be positive")
	}
	if cfg.MaxEntries <= 0 {
		return fmt.Errorf("max entries must be positive")
	}
	return nil
}

// parsePositiveInt parses a strictly positive integer such as "1_000_000" or "5000".
func parsePositiveInt(raw string) (int, error) {
	value, err := strconv.Atoi(strings.ReplaceAll(raw, "_", ""))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	if value <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", value)
	}
	return value, nil
}
