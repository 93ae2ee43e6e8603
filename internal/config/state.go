package config

import (
	"path/filepath"
	"strings"
)

// ResolveConfigPath resolves the effective config path from an optional override.
func ResolveConfigPath(explicitConfigPath string) string {
	if strings.TrimSpace(explicitConfigPath) != "" {
		return explicitConfigPath
	}
	return DefaultPath()
}

// ResolveStateDir resolves the state directory with precedence:
//  1. explicitStateDir flag
//  2. cfg.StateDir from config.toml (relative to config file dir when not absolute)
//  3. "state" next to config.toml
func ResolveStateDir(explicitStateDir, configPath string, cfg *Config) string {
	if strings.TrimSpace(explicitStateDir) != "" {
		return explicitStateDir
	}

	configDir := filepath.Dir(ResolveConfigPath(configPath))

	if cfg != nil {
		if fromConfig := strings.TrimSpace(cfg.StateDir); fromConfig != "" {
			if isAbsolutePath(fromConfig) {
				return filepath.Clean(filepath.FromSlash(fromConfig))
			}
			return filepath.Join(configDir, filepath.FromSlash(fromConfig))
		}
	}

	return filepath.Join(configDir, "state")
}

func isAbsolutePath(p string) bool {
	if filepath.IsAbs(p) {
		return true
	}
	// Treat slash-rooted config values as absolute on every OS.
	return strings.HasPrefix(filepath.ToSlash(strings.TrimSpace(p)), "/")
}
