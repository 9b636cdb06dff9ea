package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete tokopt configuration (v1 schema)
type Config struct {
	Version     int    `json:"version" mapstructure:"version"`
	ProjectRoot string `json:"projectRoot" mapstructure:"projectRoot"`

	Cache     CacheConfig     `json:"cache" mapstructure:"cache"`
	Analysis  AnalysisConfig  `json:"analysis" mapstructure:"analysis"`
	Watch     WatchConfig     `json:"watch" mapstructure:"watch"`
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// CacheConfig contains cache document configuration
type CacheConfig struct {
	Path         string `json:"path" mapstructure:"path"`
	SnapshotPath string `json:"snapshotPath" mapstructure:"snapshotPath"`
}

// AnalysisConfig contains batch analysis configuration
type AnalysisConfig struct {
	ChunkSize int      `json:"chunkSize" mapstructure:"chunkSize"`
	Workers   int      `json:"workers" mapstructure:"workers"`
	Excludes  []string `json:"excludes" mapstructure:"excludes"`
}

// WatchConfig contains filesystem watch configuration
type WatchConfig struct {
	PollIntervalMs int `json:"pollIntervalMs" mapstructure:"pollIntervalMs"`
	DebounceMs     int `json:"debounceMs" mapstructure:"debounceMs"`
}

// TelemetryConfig contains run-metrics recording configuration
type TelemetryConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	DbPath  string `json:"dbPath" mapstructure:"dbPath"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:     1,
		ProjectRoot: ".",
		Cache: CacheConfig{
			Path:         ".tokopt/analysis-cache.json",
			SnapshotPath: ".tokopt/analysis-cache.json.gz",
		},
		Analysis: AnalysisConfig{
			ChunkSize: 32,
			Workers:   0,
			Excludes:  []string{},
		},
		Watch: WatchConfig{
			PollIntervalMs: 2000,
			DebounceMs:     500,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			DbPath:  ".tokopt/metrics.db",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .tokopt/config.json
func LoadConfig(projectRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("projectRoot", ".")
	v.SetDefault("cache.path", ".tokopt/analysis-cache.json")
	v.SetDefault("cache.snapshotPath", ".tokopt/analysis-cache.json.gz")
	v.SetDefault("analysis.chunkSize", 32)
	v.SetDefault("analysis.workers", 0)
	v.SetDefault("watch.pollIntervalMs", 2000)
	v.SetDefault("watch.debounceMs", 500)
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.dbPath", ".tokopt/metrics.db")
	v.SetDefault("logging.format", "human")
	v.SetDefault("logging.level", "info")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, ".tokopt"))

	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to .tokopt/config.json
func (c *Config) Save(projectRoot string) error {
	configDir := filepath.Join(projectRoot, ".tokopt")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	return os.WriteFile(filepath.Join(configDir, "config.json"), data, 0644)
}

// CachePath resolves the cache document path against the project root.
func (c *Config) CachePath(projectRoot string) string {
	return resolve(projectRoot, c.Cache.Path)
}

// SnapshotPath resolves the snapshot path against the project root.
func (c *Config) SnapshotPath(projectRoot string) string {
	return resolve(projectRoot, c.Cache.SnapshotPath)
}

// TelemetryDbPath resolves the metrics database path against the project root.
func (c *Config) TelemetryDbPath(projectRoot string) string {
	return resolve(projectRoot, c.Telemetry.DbPath)
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Analysis.ChunkSize < 0 {
		return &ConfigError{Field: "analysis.chunkSize", Message: "must not be negative"}
	}
	if c.Analysis.Workers < 0 {
		return &ConfigError{Field: "analysis.workers", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
