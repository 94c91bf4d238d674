// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file holds one secret: the file name is the key and the trimmed
// contents are the value.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paper-scanner/internal/logger"
)

const (
	// AnthropicKeyFile is the secret file holding the model API key.
	AnthropicKeyFile = "anthropic-api-key"

	// AnthropicKeyEnv is consulted when the secret file is absent.
	AnthropicKeyEnv = "ANTHROPIC_API_KEY"
)

// ErrNoAPIKey is returned when neither the secret file nor the environment
// provide an API key.
var ErrNoAPIKey = errors.New("no Anthropic API key found")

// Load reads every regular, non-hidden file in dir. A missing directory
// yields an empty map. Unreadable files are logged and skipped.
func Load(dir string, log logger.Logger) (map[string]string, error) {
	if log == nil {
		log = logger.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("skipping unreadable secret", "name", name, "err", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// AnthropicAPIKey returns the key from dir, falling back to the
// ANTHROPIC_API_KEY environment variable.
func AnthropicAPIKey(dir string, log logger.Logger) (string, error) {
	secrets, err := Load(dir, log)
	if err != nil {
		return "", err
	}
	if key := secrets[AnthropicKeyFile]; key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(os.Getenv(AnthropicKeyEnv)); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: put it in %s or set %s",
		ErrNoAPIKey, filepath.Join(dir, AnthropicKeyFile), AnthropicKeyEnv)
}
