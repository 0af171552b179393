package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected map[string]string
	}{
		{
			name:     "simple key-value",
			content:  "base_url=http://localhost:5000/api",
			expected: map[string]string{"base_url": "http://localhost:5000/api"},
		},
		{
			name:     "quoted values",
			content:  "A=\"with spaces\"\nB='single'",
			expected: map[string]string{"A": "with spaces", "B": "single"},
		},
		{
			name:     "comments and blank lines",
			content:  "# comment\n\ntoken=abc\n",
			expected: map[string]string{"token": "abc"},
		},
		{
			name:     "export prefix",
			content:  "export token=abc",
			expected: map[string]string{"token": "abc"},
		},
		{
			name:     "value with equals sign",
			content:  "QUERY=a=b&c=d",
			expected: map[string]string{"QUERY": "a=b&c=d"},
		},
		{
			name:     "line without equals skipped",
			content:  "garbage\nok=1",
			expected: map[string]string{"ok": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".env")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			result, err := LoadDotEnv(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLoadDotEnvFileNotFound(t *testing.T) {
	_, err := LoadDotEnv("/nonexistent/path/.env")
	assert.Error(t, err)
}

func TestLoadEnvironment(t *testing.T) {
	dir := t.TempDir()

	t.Run("dotenv file", func(t *testing.T) {
		path := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(path, []byte("base_url=http://x"), 0644))

		env, err := LoadEnvironment(path, "Main")
		require.NoError(t, err)
		assert.Equal(t, "Main", env.Name)
		assert.Equal(t, "http://x/users", env.Snapshot().Resolve("{{base_url}}/users"))
	})

	t.Run("yaml with name", func(t *testing.T) {
		path := filepath.Join(dir, "staging.yaml")
		content := "name: Staging\nvariables:\n  base_url: https://staging.example.com\n  retries: 3\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		env, err := LoadEnvironment(path, "Main")
		require.NoError(t, err)
		assert.Equal(t, "Staging", env.Name)
		assert.Equal(t, "https://staging.example.com/3", env.Snapshot().Resolve("{{base_url}}/{{retries}}"))
	})

	t.Run("flat json mapping", func(t *testing.T) {
		path := filepath.Join(dir, "vars.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"token": "t0k"}`), 0644))

		env, err := LoadEnvironment(path, "Main")
		require.NoError(t, err)
		assert.Equal(t, "Main", env.Name)
		v, ok := env.Snapshot().Get("token")
		assert.True(t, ok)
		assert.Equal(t, "t0k", v)
	})
}

func TestMergeVariables(t *testing.T) {
	merged := MergeVariables(
		map[string]any{"a": "1", "b": "1"},
		map[string]any{"b": "2"},
	)
	assert.Equal(t, map[string]any{"a": "1", "b": "2"}, merged)
}
