package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// StorageConfig holds persistence settings for the notification store.
type StorageConfig struct {
	// MaxStored caps how many notifications are kept in the blob.
	MaxStored int `mapstructure:"max_stored" yaml:"max_stored"`

	// RetentionDays is how long read notifications are kept.
	RetentionDays int `mapstructure:"retention_days" yaml:"retention_days"`

	// DBPath is the sqlite database location. Empty means the default
	// path under the config directory.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// QueueConfig holds delivery retry settings.
type QueueConfig struct {
	// MaxRetries bounds delivery attempts per notification.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// RetryDelayMS is the fixed wait between attempts, in milliseconds.
	RetryDelayMS int `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`
}

// SchedulerConfig holds local alert scheduling settings.
type SchedulerConfig struct {
	// MaxAheadDays is how far in the future an alert may be scheduled.
	MaxAheadDays int `mapstructure:"max_ahead_days" yaml:"max_ahead_days"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// File is where the engine writes its log. Logging to a file keeps
	// the terminal UI clean.
	File string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Queue     QueueConfig     `mapstructure:"queue" yaml:"queue"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Display   DisplayConfig   `mapstructure:"display" yaml:"display"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/sifnotify/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "sifnotify", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{
			MaxStored:     500,
			RetentionDays: 30,
		},
		Queue: QueueConfig{
			MaxRetries:   3,
			RetryDelayMS: 5000,
		},
		Scheduler: SchedulerConfig{
			MaxAheadDays: 30,
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("storage.max_stored", 500)
	v.SetDefault("storage.retention_days", 30)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.retry_delay_ms", 5000)
	v.SetDefault("scheduler.max_ahead_days", 30)
	v.SetDefault("display.theme", "default")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("storage", cfg.Storage)
	v.Set("queue", cfg.Queue)
	v.Set("scheduler", cfg.Scheduler)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
