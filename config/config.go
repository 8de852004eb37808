// Package config is the configuration envelope named in SPEC_FULL §4.8
// (C10): every threshold the engine uses is a field here, sourced from
// flags, environment, and an optional config file, the way the teacher
// server sources its own Config.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every tunable named in spec.md §4.1-§4.6 plus the
// ambient server settings (port, log level, metrics path).
type Config struct {
	Port        int    `mapstructure:"port"`
	LogLevel    string `mapstructure:"log-level"`
	MetricsPath string `mapstructure:"metrics-path"`

	// Reputation (§4.1)
	ViolationDecayDays float64 `mapstructure:"violation-decay-days"`
	AccountAgeCapYears float64 `mapstructure:"account-age-cap-years"`

	// Triage (§4.2)
	DuplicateCacheCapacity int `mapstructure:"duplicate-cache-capacity"`

	// Orchestrator (§4.4)
	CombinedRiskThreshold float64 `mapstructure:"combined-risk-threshold"`

	// Stream processor (§4.5)
	AllowedLateness time.Duration `mapstructure:"allowed-lateness"`
	SweepEveryN     int           `mapstructure:"sweep-every-n"`

	// Concurrency budgets (§5)
	TriageDeadline time.Duration `mapstructure:"triage-deadline"`
	MLDeadline     time.Duration `mapstructure:"ml-deadline"`
	FlowADeadline  time.Duration `mapstructure:"flow-a-deadline"`
	FlowBBudget    time.Duration `mapstructure:"flow-b-budget"`

	// Downstream adapters
	PostgresDSN string `mapstructure:"postgres-dsn"`
	RedisAddr   string `mapstructure:"redis-addr"`
}

// New builds a Config from flags, environment (MODSENTRY_ prefixed),
// and an optional --config-file, in that descending order of precedence:
// a flag overrides the environment, which overrides the config file.
func New() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("log-level", "info")
	v.SetDefault("metrics-path", "/metrics")
	v.SetDefault("violation-decay-days", 90.0)
	v.SetDefault("account-age-cap-years", 1.0)
	v.SetDefault("duplicate-cache-capacity", 10000)
	v.SetDefault("combined-risk-threshold", 0.6)
	v.SetDefault("allowed-lateness", 10*time.Second)
	v.SetDefault("sweep-every-n", 100)
	v.SetDefault("triage-deadline", 50*time.Millisecond)
	v.SetDefault("ml-deadline", 500*time.Millisecond)
	v.SetDefault("flow-a-deadline", 5*time.Second)
	v.SetDefault("flow-b-budget", 10*time.Millisecond)
	v.SetDefault("postgres-dsn", "")
	v.SetDefault("redis-addr", "")

	pflag.Int("port", 8080, "HTTP listen port")
	pflag.String("log-level", "info", "Logging level (debug, info, warn, error)")
	pflag.String("metrics-path", "/metrics", "Metrics endpoint path")
	pflag.Float64("violation-decay-days", 90.0, "Decay constant for violation impact (days)")
	pflag.Float64("account-age-cap-years", 1.0, "Years at which the account-age reputation factor saturates")
	pflag.Int("duplicate-cache-capacity", 10000, "Triage duplicate-hash LRU capacity")
	pflag.Float64("combined-risk-threshold", 0.6, "Combined risk score above which content escalates")
	pflag.Duration("allowed-lateness", 10*time.Second, "Flow B watermark lateness tolerance")
	pflag.Int("sweep-every-n", 100, "Messages between state-backend sweeps")
	pflag.Duration("triage-deadline", 50*time.Millisecond, "Per-content triage tier budget")
	pflag.Duration("ml-deadline", 500*time.Millisecond, "Per-content ML tier budget")
	pflag.Duration("flow-a-deadline", 5*time.Second, "Per-content end-to-end Flow A budget")
	pflag.Duration("flow-b-budget", 10*time.Millisecond, "Per-message Flow B budget")
	pflag.String("postgres-dsn", "", "Postgres sink DSN; empty disables the sink")
	pflag.String("redis-addr", "", "Redis state backend address; empty uses the in-memory backend")
	pflag.String("config-file", "", "Path to a YAML/JSON config file. Can also be set with MODSENTRY_CONFIG_FILE.")
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetEnvPrefix("MODSENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile := v.GetString("config-file"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks structural constraints on the config.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	ok := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid log-level: %s, must be one of %v", c.LogLevel, validLogLevels)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d, must be between 1 and 65535", c.Port)
	}
	if c.ViolationDecayDays <= 0 {
		return fmt.Errorf("invalid violation-decay-days: %f, must be positive", c.ViolationDecayDays)
	}
	if c.DuplicateCacheCapacity <= 0 {
		return fmt.Errorf("invalid duplicate-cache-capacity: %d, must be positive", c.DuplicateCacheCapacity)
	}
	if c.CombinedRiskThreshold < 0 || c.CombinedRiskThreshold > 1 {
		return fmt.Errorf("invalid combined-risk-threshold: %f, must be in [0,1]", c.CombinedRiskThreshold)
	}
	if c.SweepEveryN <= 0 {
		return fmt.Errorf("invalid sweep-every-n: %d, must be positive", c.SweepEveryN)
	}

	return nil
}

// DefaultConfig returns a Config populated with the documented defaults,
// useful for tests and the CLI simulator that don't go through flags.
func DefaultConfig() *Config {
	return &Config{
		Port:                   8080,
		LogLevel:               "info",
		MetricsPath:            "/metrics",
		ViolationDecayDays:     90.0,
		AccountAgeCapYears:     1.0,
		DuplicateCacheCapacity: 10000,
		CombinedRiskThreshold:  0.6,
		AllowedLateness:        10 * time.Second,
		SweepEveryN:            100,
		TriageDeadline:         50 * time.Millisecond,
		MLDeadline:             500 * time.Millisecond,
		FlowADeadline:          5 * time.Second,
		FlowBBudget:            10 * time.Millisecond,
	}
}
