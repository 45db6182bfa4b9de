package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/charmbracelet/log"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Values from the environment (ACS_*) take precedence over the file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Stream   StreamConfig   `toml:"stream"`
	Log      LogConfig      `toml:"log"`
}

// APIConfig contains content API endpoints and request settings.
type APIConfig struct {
	BaseURL        string `toml:"base_url" env:"ACS_API_URL"`
	WebURL         string `toml:"web_url" env:"ACS_WEB_URL"`
	StreamPath     string `toml:"stream_path" env:"ACS_STREAM_PATH"`
	TimeoutSeconds int    `toml:"timeout_seconds" env:"ACS_TIMEOUT_SECONDS"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"ACS_DB_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// StreamConfig contains live update channel settings.
type StreamConfig struct {
	ReconnectSeconds int `toml:"reconnect_seconds" env:"ACS_RECONNECT_SECONDS"`
	Buffer           int `toml:"buffer"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" env:"ACS_LOG_LEVEL"`
	File  string `toml:"file"`
}

// Timeout returns the per-request timeout, falling back to 10 seconds.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ReconnectInterval returns the minimum delay between stream reconnect attempts.
func (c StreamConfig) ReconnectInterval() time.Duration {
	if c.ReconnectSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.ReconnectSeconds) * time.Second
}

// LogLevel parses the configured level, defaulting to info.
func (c LogConfig) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides config values with any ACS_* environment variables that are set.
func ApplyEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: failed to parse environment: %v", ErrInvalidConfig, err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
