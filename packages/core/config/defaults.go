package config

import (
	"os"
	"path/filepath"
)

const (
	DefaultBackendURL    = "http://localhost:5000/api"
	DefaultBackendOrigin = "localhost:5000"
	DefaultMaxRedirects  = 10
	DefaultEnvName       = "Main"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		BackendURL:      DefaultBackendURL,
		Timeout:         0, // no timeout
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    DefaultMaxRedirects,
		ValidateSSL:     BoolPtr(true),
		DataDir:         defaultDataDir(),
		DevProxy: &DevProxy{
			Enabled:       false,
			BackendOrigin: DefaultBackendOrigin,
		},
		Environment: &Environment{
			Name:      DefaultEnvName,
			Variables: map[string]any{"base_url": "https://api.example.com"},
		},
		Verbose: BoolPtr(false),
		NoColor: BoolPtr(false),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".hitdesk"
	}
	return filepath.Join(home, ".hitdesk")
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.BackendURL == defaults.BackendURL &&
		c.Timeout == defaults.Timeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.Proxy == defaults.Proxy &&
		len(c.Headers) == 0 &&
		c.DataDir == defaults.DataDir &&
		!c.DevProxyEnabled() &&
		c.EnvFile == defaults.EnvFile &&
		c.BackendRateLimit == defaults.BackendRateLimit &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
