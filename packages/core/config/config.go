package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the hitdesk configuration
type Config struct {
	BackendURL       string            `json:"backendUrl,omitempty"`
	Timeout          int               `json:"timeout,omitempty"` // milliseconds, 0 means none
	FollowRedirects  *bool             `json:"followRedirects,omitempty"`
	MaxRedirects     int               `json:"maxRedirects,omitempty"`
	ValidateSSL      *bool             `json:"validateSSL,omitempty"`
	Proxy            string            `json:"proxy,omitempty"`
	Headers          map[string]string `json:"headers,omitempty"` // Default headers for executed requests
	DataDir          string            `json:"dataDir,omitempty"`
	DevProxy         *DevProxy         `json:"devProxy,omitempty"`
	Environment      *Environment      `json:"environment,omitempty"`
	EnvFile          string            `json:"envFile,omitempty"`
	BackendRateLimit float64           `json:"backendRateLimit,omitempty"` // requests per second, 0 means unlimited
	Verbose          *bool             `json:"verbose,omitempty"`
	NoColor          *bool             `json:"noColor,omitempty"`
}

// DevProxy controls rewriting of backend URLs to same-origin relative paths.
type DevProxy struct {
	Enabled       bool   `json:"enabled"`
	BackendOrigin string `json:"backendOrigin,omitempty"`
	ServerOrigin  string `json:"serverOrigin,omitempty"`
}

// Environment is the variable set used before any remote environment loads.
type Environment struct {
	Name      string         `json:"name,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// TimeoutDuration converts Timeout to a duration. Zero means no timeout.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return 0
	}
	return time.Duration(c.Timeout) * time.Millisecond
}

// DevProxyEnabled reports whether backend URLs should be rewritten.
func (c *Config) DevProxyEnabled() bool {
	return c.DevProxy != nil && c.DevProxy.Enabled
}

// CredentialsPath is the credential store file under DataDir.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.DataDir, "credentials.json")
}

// HistoryDatabase is the sqlite connection string for the local history journal.
func (c *Config) HistoryDatabase() string {
	return "sqlite://" + filepath.Join(c.DataDir, "history.db")
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".hitdesk.config.json",
	"hitdesk.config.json",
	".hitdeskrc",
	".hitdeskrc.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile reads path and merges it over the defaults.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fromFile Config
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return DefaultConfig().Merge(&fromFile), nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.BackendURL != "" {
		result.BackendURL = other.BackendURL
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.DataDir != "" {
		result.DataDir = other.DataDir
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}
	if other.BackendRateLimit > 0 {
		result.BackendRateLimit = other.BackendRateLimit
	}
	if other.DevProxy != nil {
		dp := *other.DevProxy
		if dp.BackendOrigin == "" && result.DevProxy != nil {
			dp.BackendOrigin = result.DevProxy.BackendOrigin
		}
		if dp.ServerOrigin == "" && result.DevProxy != nil {
			dp.ServerOrigin = result.DevProxy.ServerOrigin
		}
		result.DevProxy = &dp
	}
	if other.Environment != nil {
		result.Environment = other.Environment
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	// Merge headers
	if len(other.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range other.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
