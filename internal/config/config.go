package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when an explicitly requested config file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

type ServerConfig struct {
	Port        string `yaml:"port"`
	AtlasDir    string `yaml:"atlas_dir"`
	Manifest    string `yaml:"manifest"`
	CacheMaxAge int    `yaml:"cache_max_age"`
	Watch       bool   `yaml:"watch"`
}

type ClientConfig struct {
	BaseURL    string `yaml:"base_url"`
	AtlasCount int    `yaml:"atlas_count"`
}

type Config struct {
	Server   ServerConfig `yaml:"server"`
	Client   ClientConfig `yaml:"client"`
	LogLevel string       `yaml:"log_level"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			AtlasDir:    "output_atlases",
			Manifest:    "atlas_data.json",
			CacheMaxAge: 86400,
		},
		Client: ClientConfig{
			BaseURL:    "http://localhost:8000/",
			AtlasCount: 128,
		},
		LogLevel: "info",
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped when
// path is empty) and then with the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Port = v
	}
	if v, ok := lookup("ATLAS_DIR"); ok && v != "" {
		c.Server.AtlasDir = v
	}
	if v, ok := lookup("ATLAS_MANIFEST"); ok && v != "" {
		c.Server.Manifest = v
	}
	if v, ok := lookup("ATLAS_CACHE_MAX_AGE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ATLAS_CACHE_MAX_AGE: %w", err)
		}
		c.Server.CacheMaxAge = n
	}
	if v, ok := lookup("ATLAS_WATCH"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ATLAS_WATCH: %w", err)
		}
		c.Server.Watch = b
	}
	if v, ok := lookup("ATLAS_BASE_URL"); ok && v != "" {
		c.Client.BaseURL = v
	}
	if v, ok := lookup("ATLAS_COUNT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ATLAS_COUNT: %w", err)
		}
		c.Client.AtlasCount = n
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	return nil
}

// CacheMaxAgeDuration returns the page cache lifetime.
func (s ServerConfig) CacheMaxAgeDuration() time.Duration {
	return time.Duration(s.CacheMaxAge) * time.Second
}
