// Package config provides configuration management for voxline
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Assistant AssistantConfig `mapstructure:"assistant"`
	Server    ServerConfig    `mapstructure:"server"`
	Puppet    PuppetConfig    `mapstructure:"puppet"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Alignment AlignmentConfig `mapstructure:"alignment"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AssistantConfig configures the assistant stream connection
type AssistantConfig struct {
	URL            string        `mapstructure:"url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	AutoStart      bool          `mapstructure:"auto_start"`
}

// ServerConfig configures the HTTP/WebSocket surface
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// PuppetConfig configures the lip-sync puppet
type PuppetConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ModelPath  string `mapstructure:"model_path"`
	WatchModel bool   `mapstructure:"watch_model"`
}

// StorageConfig configures session persistence
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// AlignmentConfig configures per-utterance timing artifacts
type AlignmentConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Dir     string `mapstructure:"dir"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Assistant: AssistantConfig{
			URL:            "ws://localhost:8765/stream",
			ReconnectDelay: 5 * time.Second,
			MaxReconnects:  10,
			AutoStart:      true,
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8080",
		},
		Puppet: PuppetConfig{
			Enabled:    true,
			ModelPath:  "",
			WatchModel: true,
		},
		Storage: StorageConfig{
			DBPath: filepath.Join("data", "voxline.db"),
		},
		Alignment: AlignmentConfig{
			Enabled: true,
			Dir:     "logs",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Dir:     "",
			Console: true,
		},
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := GetConfigDir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("VOXLINE")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found, use defaults and create one
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("assistant", cfg.Assistant)
	viper.Set("server", cfg.Server)
	viper.Set("puppet", cfg.Puppet)
	viper.Set("storage", cfg.Storage)
	viper.Set("alignment", cfg.Alignment)
	viper.Set("logging", cfg.Logging)

	configPath := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configPath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".voxline"), nil
}
