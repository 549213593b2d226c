package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corkboard.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	path := writeConfig(t, `
api_url: https://api.example.com
grid:
  cellWidth: 200
  padding: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.Equal(t, 200.0, cfg.Grid.CellWidth)
	assert.Equal(t, 10.0, cfg.Grid.Padding)
	assert.Equal(t, 140.0, cfg.Grid.CellHeight, "absent grid keys keep defaults")
	assert.Equal(t, 40.0, cfg.Grid.GroupHeaderHeight)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "api_url: https://file.example.com\n")
	t.Setenv(EnvAPIURL, "https://env.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.APIURL)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv(EnvAPIURL, "http://localhost:4000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", cfg.APIURL)
	assert.Equal(t, 220.0, cfg.Grid.CellWidth, "grid defaults apply without a file")
}

func TestLoadMissingAPIURL(t *testing.T) {
	t.Setenv(EnvAPIURL, "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API URL configured")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "api_url: [not a scalar\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad scheme",
			mutate:  func(c *Config) { c.APIURL = "ftp://api.example.com" },
			wantErr: "must be http or https",
		},
		{
			name:    "no host",
			mutate:  func(c *Config) { c.APIURL = "https://" },
			wantErr: "has no host",
		},
		{
			name:    "zero cell width",
			mutate:  func(c *Config) { c.Grid.CellWidth = 0 },
			wantErr: "cell dimensions must be positive",
		},
		{
			name:    "negative padding",
			mutate:  func(c *Config) { c.Grid.Padding = -1 },
			wantErr: "cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{APIURL: "https://api.example.com"}
			cfg.Grid.CellWidth = 220
			cfg.Grid.CellHeight = 140
			cfg.Grid.Padding = 16
			cfg.Grid.GroupHeaderHeight = 40
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSocketURL(t *testing.T) {
	tests := []struct {
		apiURL string
		want   string
	}{
		{"https://api.example.com", "wss://api.example.com/socket"},
		{"http://localhost:4000", "ws://localhost:4000/socket"},
		{"https://api.example.com/", "wss://api.example.com/socket"},
	}
	for _, tt := range tests {
		cfg := &Config{APIURL: tt.apiURL}
		assert.Equal(t, tt.want, cfg.SocketURL())
	}
}
