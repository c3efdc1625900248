package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// SaveValue writes a single key into the TOML config file at path,
// creating the file and its directory when missing. Existing keys are
// preserved. Used by `docqa config set-key` so secrets never have to
// live in shell history.
func SaveValue(path, key string, value any) error {
	data := make(map[string]any)

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	default:
		return fmt.Errorf("read config file: %w", err)
	}

	data[key] = value

	out, err := toml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	// Config holds API keys; keep it private to the owner.
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
