// Package config handles configuration loading and management for hitdesk.
//
// It provides functionality for:
//   - Discovering .hitdesk.config.json, hitdesk.config.json, .hitdeskrc or .hitdeskrc.json
//   - Default configuration values (backend URL, data directory, default environment)
//   - Merging file values with command line overrides
package config
