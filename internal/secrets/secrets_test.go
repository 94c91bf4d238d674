// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-scanner/internal/logger"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "  sk-ant-123  \n")
				writeFile(t, dir, "other", "value")
				return dir
			},
			want: map[string]string{"anthropic-api-key": "sk-ant-123", "other": "value"},
		},
		{
			name: "missing directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files dotfiles and directories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "valid")
				writeFile(t, dir, "empty", "   \n\t")
				writeFile(t, dir, ".hidden", "secret")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{"anthropic-api-key": "valid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), logger.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnthropicAPIKey(t *testing.T) {
	t.Run("file wins over environment", func(t *testing.T) {
		t.Setenv(AnthropicKeyEnv, "from-env")
		dir := t.TempDir()
		writeFile(t, dir, AnthropicKeyFile, "from-file\n")

		key, err := AnthropicAPIKey(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, "from-file", key)
	})

	t.Run("environment fallback", func(t *testing.T) {
		t.Setenv(AnthropicKeyEnv, "from-env")
		key, err := AnthropicAPIKey(t.TempDir(), nil)
		require.NoError(t, err)
		assert.Equal(t, "from-env", key)
	})

	t.Run("missing everywhere", func(t *testing.T) {
		t.Setenv(AnthropicKeyEnv, "")
		_, err := AnthropicAPIKey(t.TempDir(), nil)
		assert.ErrorIs(t, err, ErrNoAPIKey)
	})
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
