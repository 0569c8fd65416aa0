// Package config handles loading and validating fleetmon configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} placeholders in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ErrConfigFileNotFound is returned by Load when the specified config file does not exist.
var ErrConfigFileNotFound = errors.New("config file not found")

// Config is the top-level fleetmon configuration.
type Config struct {
	Listen             string     `yaml:"listen"`
	DBPath             string     `yaml:"db_path"`
	LogLevel           string     `yaml:"log_level"`
	LogFormat          string     `yaml:"log_format"`
	WebhookAPIKey      string     `yaml:"webhook_api_key"`
	RetentionHours     int        `yaml:"retention_hours"`
	LookbackHours      int        `yaml:"lookback_hours"`
	SummaryCacheTTL    Duration   `yaml:"summary_cache_ttl"`
	AggregationTimeout Duration   `yaml:"aggregation_timeout"`
	Thresholds         Thresholds `yaml:"thresholds"`
}

// Thresholds holds every health classification knob. All of these are
// adjustable without code changes.
type Thresholds struct {
	SystemStaleMinutes    int     `yaml:"system_stale_minutes"`
	DiskTempWarning       float64 `yaml:"disk_temp_warning"`
	DiskTempCritical      float64 `yaml:"disk_temp_critical"`
	PoolCapacityWarning   float64 `yaml:"pool_capacity_warning"`
	PoolCapacityCritical  float64 `yaml:"pool_capacity_critical"`
	ScrubOverdueDays      int     `yaml:"scrub_overdue_days"`
	ReplicationStaleHours int     `yaml:"replication_stale_hours"`
}

// Duration wraps time.Duration with YAML string parsing support.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Load reads configuration from a YAML file. If no path is given, defaults
// plus environment overrides are used. If a path is given and the file does
// not exist, ErrConfigFileNotFound is returned.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(expandEnvVars(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("log_format must be one of: text, json")
	}
	if c.RetentionHours < 1 {
		return fmt.Errorf("retention_hours must be >= 1")
	}
	if c.LookbackHours < 1 {
		return fmt.Errorf("lookback_hours must be >= 1")
	}
	if c.SummaryCacheTTL.Duration < 0 {
		return fmt.Errorf("summary_cache_ttl must be >= 0")
	}
	if c.AggregationTimeout.Duration <= 0 {
		return fmt.Errorf("aggregation_timeout must be > 0")
	}

	t := c.Thresholds
	if t.SystemStaleMinutes < 1 {
		return fmt.Errorf("thresholds.system_stale_minutes must be >= 1")
	}
	if t.DiskTempWarning <= 0 || t.DiskTempCritical <= 0 {
		return fmt.Errorf("thresholds.disk_temp_warning and disk_temp_critical must be > 0")
	}
	if t.DiskTempWarning >= t.DiskTempCritical {
		return fmt.Errorf("thresholds.disk_temp_warning must be below disk_temp_critical")
	}
	if t.PoolCapacityWarning <= 0 || t.PoolCapacityWarning >= 1 {
		return fmt.Errorf("thresholds.pool_capacity_warning must be in (0, 1)")
	}
	if t.PoolCapacityCritical <= t.PoolCapacityWarning || t.PoolCapacityCritical >= 1 {
		return fmt.Errorf("thresholds.pool_capacity_critical must be in (pool_capacity_warning, 1)")
	}
	if t.ScrubOverdueDays < 1 {
		return fmt.Errorf("thresholds.scrub_overdue_days must be >= 1")
	}
	if t.ReplicationStaleHours < 1 {
		return fmt.Errorf("thresholds.replication_stale_hours must be >= 1")
	}

	return nil
}

func defaults() *Config {
	return &Config{
		Listen:             ":8420",
		DBPath:             "/data/fleetmon.db",
		LogLevel:           "info",
		LogFormat:          "text",
		RetentionHours:     48,
		LookbackHours:      24,
		SummaryCacheTTL:    Duration{15 * time.Second},
		AggregationTimeout: Duration{10 * time.Second},
		Thresholds: Thresholds{
			SystemStaleMinutes:    60,
			DiskTempWarning:       45,
			DiskTempCritical:      55,
			PoolCapacityWarning:   0.80,
			PoolCapacityCritical:  0.90,
			ScrubOverdueDays:      7,
			ReplicationStaleHours: 24,
		},
	}
}

// expandEnvVars replaces ${VAR_NAME} placeholders in raw YAML with the
// corresponding environment variable values. Unset variables are replaced
// with an empty string, which will then fail validation with a clear error.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		key := string(match[2 : len(match)-1]) // strip ${ and }
		return []byte(os.Getenv(key))
	})
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("FLEETMON_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("FLEETMON_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FLEETMON_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLEETMON_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("FLEETMON_WEBHOOK_API_KEY"); v != "" {
		cfg.WebhookAPIKey = v
	}
	if v := os.Getenv("FLEETMON_RETENTION_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FLEETMON_RETENTION_HOURS %q: %w", v, err)
		}
		cfg.RetentionHours = n
	}
	return nil
}
