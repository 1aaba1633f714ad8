// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/tidylist/contactscan/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Region  string        `yaml:"region" mapstructure:"region"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Scan    ScanConfig    `yaml:"scan" mapstructure:"scan"`
	Dedupe  DedupeConfig  `yaml:"dedupe" mapstructure:"dedupe"`
	Backup  BackupConfig  `yaml:"backup" mapstructure:"backup"`
	Cleanup CleanupConfig `yaml:"cleanup" mapstructure:"cleanup"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Path        string            `yaml:"path" mapstructure:"path"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ScanConfig configures the scan pipeline.
type ScanConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// DedupeConfig configures duplicate resolution.
type DedupeConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// BackupConfig configures snapshot retention.
type BackupConfig struct {
	MaxAgeDays int `yaml:"max_age_days" mapstructure:"max_age_days"`
	MaxCount   int `yaml:"max_count" mapstructure:"max_count"`
}

// MaxAge returns the retention window as a duration.
func (c BackupConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

// CleanupConfig configures the cleanup executor.
type CleanupConfig struct {
	MutationsPerSecond float64 `yaml:"mutations_per_second" mapstructure:"mutations_per_second"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CONTACTSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one: AutomaticEnv only surfaces a variable
	// through Unmarshal when viper already knows the key.
	v.SetDefault("region", "US")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.path", "contactscan.db")
	v.SetDefault("store.pool.max_conns", 0)
	v.SetDefault("store.pool.min_conns", 0)
	v.SetDefault("scan.batch_size", 1000)
	v.SetDefault("dedupe.similarity_threshold", 0.82)
	v.SetDefault("backup.max_age_days", 7)
	v.SetDefault("backup.max_count", 50)
	v.SetDefault("cleanup.mutations_per_second", 200)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// WriteDefault writes a config file populated with the default values.
// Fails when the file already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return eris.Errorf("config: %s already exists", path)
	}

	cfg := Config{
		Region:  "US",
		Store:   StoreConfig{Driver: "sqlite", Path: "contactscan.db"},
		Scan:    ScanConfig{BatchSize: 1000},
		Dedupe:  DedupeConfig{SimilarityThreshold: 0.82},
		Backup:  BackupConfig{MaxAgeDays: 7, MaxCount: 50},
		Cleanup: CleanupConfig{MutationsPerSecond: 200},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "config: marshal defaults")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "config: write %s", path)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
