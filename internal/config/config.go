// Package config loads client configuration for helixctl from a YAML file
// with environment-variable overrides. Credentials are deliberately not part
// of the file format; the password only ever travels through HELIX_PASSWORD.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where helixctl looks for its configuration.
const DefaultPath = "helix.yaml"

// Config is the helixctl client configuration.
type Config struct {
	ServerURL        string `yaml:"server_url"`
	Username         string `yaml:"username,omitempty"`
	DefaultLauncher  string `yaml:"default_launcher,omitempty"`
	ProbeConcurrency int    `yaml:"probe_concurrency,omitempty"`
	Verbose          bool   `yaml:"verbose,omitempty"`
}

// Load reads the configuration file at path and applies environment
// overrides. A missing file is not an error: the configuration can come
// entirely from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Environment-only configuration.
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HELIX_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("HELIX_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("HELIX_DEFAULT_LAUNCHER"); v != "" {
		c.DefaultLauncher = v
	}
	if v := os.Getenv("HELIX_PROBE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ProbeConcurrency = n
		}
	}
}

// Validate checks that the configuration is sufficient to build a client.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server URL is required (set server_url in helix.yaml or HELIX_SERVER_URL)")
	}
	return nil
}
