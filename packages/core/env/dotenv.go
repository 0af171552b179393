package env

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDotEnv parses a .env file into key-value pairs.
// Supports KEY=value, KEY="quoted value", KEY='single quoted', export KEY=value
// and # comments. Nothing is exported to the process environment.
func LoadDotEnv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	result := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		result[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	return result, nil
}

// LoadEnvironment loads a variable set from path. Files ending in .env (or
// named .env) are read as dotenv, everything else as a YAML/JSON environment.
func LoadEnvironment(path, defaultName string) (*Environment, error) {
	base := filepath.Base(path)
	if base == ".env" || strings.HasSuffix(base, ".env") || strings.HasPrefix(base, ".env.") {
		vars, err := LoadDotEnv(path)
		if err != nil {
			return nil, err
		}
		env := &Environment{Name: defaultName, Variables: make(map[string]any, len(vars))}
		for k, v := range vars {
			env.Variables[k] = v
		}
		return env, nil
	}
	return LoadEnvironmentFile(path, defaultName)
}
