// Package config provides configuration management for the themekit CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Version is the config file format version
const Version = "1"

// Config represents the CLI configuration file
type Config struct {
	// Version of the config file format
	Version string `yaml:"version"`

	// CurrentProfile is the active profile name
	CurrentProfile string `yaml:"current_profile"`

	// Profiles is a map of profile name to profile configuration
	Profiles map[string]*Profile `yaml:"profiles"`
}

// Profile represents a named configuration profile
type Profile struct {
	// Name is the profile identifier (e.g., "dev", "staging", "prod")
	Name string `yaml:"name"`

	// Environment is the storage environment themes are pushed to
	Environment string `yaml:"environment"`

	// Developer is the developer identifier used for local-environment paths
	Developer string `yaml:"developer,omitempty"`

	// WebsiteID is the website the themes belong to
	WebsiteID string `yaml:"website_id"`

	// PublicURL is the CDN origin serving uploaded artifacts
	PublicURL string `yaml:"public_url,omitempty"`

	// CDNHost overrides the public package CDN for relay mode
	CDNHost string `yaml:"cdn_host,omitempty"`
}

// DefaultConfigDir returns the default config directory path
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".themekit"
	}
	return filepath.Join(home, ".themekit")
}

// DefaultConfigPath returns the default config file path
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// New creates a new empty configuration
func New() *Config {
	return &Config{
		Version:  Version,
		Profiles: make(map[string]*Profile),
	}
}

// Load reads configuration from the specified path
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*Profile)
	}

	return &cfg, nil
}

// LoadOrCreate reads configuration or creates a new one if it doesn't exist
func LoadOrCreate(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}

	return Load(path)
}

// Save writes the configuration to the specified path
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	// Ensure directory exists with restricted permissions
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetProfile returns the named profile or the current profile if name is empty
func (c *Config) GetProfile(name string) (*Profile, error) {
	if name == "" {
		name = c.CurrentProfile
	}

	if name == "" {
		return nil, fmt.Errorf("no profile specified and no current profile set")
	}

	profile, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile '%s' not found", name)
	}

	return profile, nil
}

// SetProfile adds or updates a profile
func (c *Config) SetProfile(profile *Profile) {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*Profile)
	}
	c.Profiles[profile.Name] = profile
}
