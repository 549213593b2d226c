// Package config loads the client configuration: the base API URL that
// every REST path and the socket endpoint derive from, plus optional grid
// geometry overrides from corkboard.yml.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/finleyb/corkboard/pkg/grid"
)

// EnvAPIURL is the environment variable holding the base API URL.
const EnvAPIURL = "CORKBOARD_API_URL"

// DefaultConfigFile is looked up in the working directory when no explicit
// path is given.
const DefaultConfigFile = "corkboard.yml"

// Config is the resolved client configuration.
type Config struct {
	APIURL string      `yaml:"api_url"` // Base URL of the remote API, e.g. https://api.example.com
	Grid   grid.Config `yaml:"grid"`    // Grid geometry, deployment defaults unless overridden
}

// fileConfig is the on-disk shape. Grid fields are pointers so absent keys
// fall back to defaults rather than zeroing them.
type fileConfig struct {
	APIURL string `yaml:"api_url"`
	Grid   *struct {
		CellWidth         *float64 `yaml:"cellWidth"`
		CellHeight        *float64 `yaml:"cellHeight"`
		Padding           *float64 `yaml:"padding"`
		GroupHeaderHeight *float64 `yaml:"groupHeaderHeight"`
	} `yaml:"grid"`
}

// Load resolves configuration from, in increasing precedence: the config
// file (path, or corkboard.yml if path is empty and it exists), a .env
// file in the working directory, and the process environment.
func Load(path string) (*Config, error) {
	cfg := &Config{Grid: grid.DefaultConfig()}

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile merges a yaml config file into cfg.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.APIURL != "" {
		c.APIURL = fc.APIURL
	}
	if fc.Grid != nil {
		if fc.Grid.CellWidth != nil {
			c.Grid.CellWidth = *fc.Grid.CellWidth
		}
		if fc.Grid.CellHeight != nil {
			c.Grid.CellHeight = *fc.Grid.CellHeight
		}
		if fc.Grid.Padding != nil {
			c.Grid.Padding = *fc.Grid.Padding
		}
		if fc.Grid.GroupHeaderHeight != nil {
			c.Grid.GroupHeaderHeight = *fc.Grid.GroupHeaderHeight
		}
	}
	return nil
}

// Validate performs strict validation on the configuration.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("no API URL configured (set %s or api_url in %s)", EnvAPIURL, DefaultConfigFile)
	}

	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid API URL %q: %w", c.APIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API URL must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("API URL %q has no host", c.APIURL)
	}

	if c.Grid.CellWidth <= 0 || c.Grid.CellHeight <= 0 {
		return fmt.Errorf("grid cell dimensions must be positive")
	}
	if c.Grid.Padding < 0 || c.Grid.GroupHeaderHeight < 0 {
		return fmt.Errorf("grid padding and header height cannot be negative")
	}
	return nil
}

// SocketURL derives the websocket endpoint from the base API URL: the same
// host, protocol-upgraded, at /socket.
func (c *Config) SocketURL() string {
	u := c.APIURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimSuffix(u, "/") + "/socket"
}
