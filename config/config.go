// Package config loads scraper configuration from YAML files and the
// environment.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	Logging struct {
		Format string `yaml:"format"`
		Level  string `yaml:"level"`
	} `yaml:"logging"`
	HTTP struct {
		Timeout   time.Duration `yaml:"timeout"`
		UserAgent string        `yaml:"user_agent"`
	} `yaml:"http"`
	Steam struct {
		CachePath string        `yaml:"cache_path"`
		CacheTTL  time.Duration `yaml:"cache_ttl"`
	} `yaml:"steam"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Logging.Format = "text"
	cfg.Logging.Level = "info"
	cfg.HTTP.Timeout = 30 * time.Second
	cfg.HTTP.UserAgent = "esscraper/1.0"
	cfg.Steam.CacheTTL = 24 * time.Hour
	if home, err := os.UserHomeDir(); err == nil {
		cfg.Steam.CachePath = filepath.Join(home, ".esscraper", "steam-apps.db")
	} else {
		cfg.Steam.CachePath = "steam-apps.db"
	}
	return cfg
}

// configPaths returns the list of paths to search for a config file.
func configPaths() []string {
	paths := []string{
		".esscraper.yaml",
		".esscraper.yml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "esscraper", "config.yaml"),
			filepath.Join(home, ".config", "esscraper", "config.yml"),
			filepath.Join(home, ".esscraper.yaml"),
		)
	}

	return paths
}

// Load loads configuration from file or returns defaults.
// Priority: env ESSCRAPER_CONFIG > search paths > defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if envPath := os.Getenv("ESSCRAPER_CONFIG"); envPath != "" {
		if err := cfg.loadFromFile(envPath); err != nil {
			return nil, err
		}
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadFromFile(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("ESSCRAPER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if format := os.Getenv("ESSCRAPER_LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}
	if cache := os.Getenv("ESSCRAPER_STEAM_CACHE"); cache != "" {
		c.Steam.CachePath = cache
	}
}
