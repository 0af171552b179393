package env

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment is a named variable set.
type Environment struct {
	Name      string         `yaml:"name" json:"name"`
	Variables map[string]any `yaml:"variables" json:"variables"`
}

// Snapshot freezes the environment for a resolution pass.
func (e *Environment) Snapshot() Snapshot {
	if e == nil {
		return NewSnapshot("", nil)
	}
	return SnapshotFromAny(e.Name, e.Variables)
}

// LoadEnvironmentFile reads an environment from a YAML (or JSON) file of the
// form {name: ..., variables: {...}}. A file holding a bare mapping is read
// as the variables of an environment named after defaultName.
func LoadEnvironmentFile(path, defaultName string) (*Environment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open environment file: %w", err)
	}

	var env Environment
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing environment file: %w", err)
	}

	if env.Variables == nil {
		var flat map[string]any
		if err := yaml.Unmarshal(data, &flat); err != nil {
			return nil, fmt.Errorf("parsing environment file: %w", err)
		}
		delete(flat, "name")
		env.Variables = flat
	}
	if env.Name == "" {
		env.Name = defaultName
	}
	return &env, nil
}

// MergeVariables merges sources left to right, later sources winning.
func MergeVariables(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// LoadSystemEnv returns OS environment variables starting with prefix, with
// the prefix stripped. An empty prefix returns nothing.
func LoadSystemEnv(prefix string) map[string]any {
	result := make(map[string]any)
	if prefix == "" {
		return result
	}
	for _, e := range os.Environ() {
		for i := 0; i < len(e); i++ {
			if e[i] == '=' {
				key := e[:i]
				value := e[i+1:]
				if len(key) > len(prefix) && key[:len(prefix)] == prefix {
					result[key[len(prefix):]] = value
				}
				break
			}
		}
	}
	return result
}
