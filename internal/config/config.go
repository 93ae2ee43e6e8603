// Package config handles global qshape configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Source kinds.
const (
	SourceFile   = "file"
	SourceSQLite = "sqlite"
	SourceREST   = "rest"
)

// Defaults applied by WithDefaults.
const (
	DefaultPageSize        = 200
	DefaultBatchSize       = 2000
	DefaultMaxRowsPerSheet = 1000000
	DefaultRecordsPath     = "$.records"
	DefaultAPIVersion      = "59.0"
	DefaultTokenEnv        = "QSHAPE_ACCESS_TOKEN"
	DefaultExportFormat    = "xlsx"
)

// Config represents the global qshape configuration.
type Config struct {
	// StateDir holds the last result set between commands. Relative paths are
	// resolved against the config file's directory.
	StateDir string `toml:"state_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	Source SourceConfig `toml:"source"`
	Export ExportConfig `toml:"export"`

	// UI controls optional CLI theming preferences.
	UI UIConfig `toml:"ui"`
}

// SourceConfig selects and configures the query service.
type SourceConfig struct {
	// Kind is file, sqlite or rest.
	Kind string `toml:"kind"`

	// Path is the fixture directory (file) or database file (sqlite).
	Path string `toml:"path"`

	// RecordsPath is a JSONPath locating records inside a fixture envelope.
	RecordsPath string `toml:"records_path"`

	PageSize  int `toml:"page_size"`
	BatchSize int `toml:"batch_size"`

	// InstanceURL, APIVersion and TokenEnv configure the rest source.
	InstanceURL string `toml:"instance_url"`
	APIVersion  string `toml:"api_version"`
	TokenEnv    string `toml:"token_env"`
}

// ExportConfig controls spreadsheet and CSV exports.
type ExportConfig struct {
	Format          string `toml:"format"`
	OutputDir       string `toml:"output_dir"`
	MaxRowsPerSheet int    `toml:"max_rows_per_sheet"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output and markdown rendering.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`

	// CodeTheme sets the Glamour/Chroma theme used for rendered markdown code blocks.
	CodeTheme string `toml:"code_theme"`
}

// WithDefaults returns a copy of c with unset values filled in.
func (c *Config) WithDefaults() *Config {
	out := Config{}
	if c != nil {
		out = *c
	}

	out.Source.Kind = strings.ToLower(strings.TrimSpace(out.Source.Kind))
	if out.Source.Kind == "" {
		out.Source.Kind = SourceFile
	}
	if out.Source.Path == "" && out.Source.Kind == SourceFile {
		out.Source.Path = "."
	}
	if out.Source.RecordsPath == "" {
		out.Source.RecordsPath = DefaultRecordsPath
	}
	if out.Source.PageSize <= 0 {
		out.Source.PageSize = DefaultPageSize
	}
	if out.Source.BatchSize <= 0 {
		out.Source.BatchSize = DefaultBatchSize
	}
	if out.Source.APIVersion == "" {
		out.Source.APIVersion = DefaultAPIVersion
	}
	if out.Source.TokenEnv == "" {
		out.Source.TokenEnv = DefaultTokenEnv
	}

	out.Export.Format = strings.ToLower(strings.TrimSpace(out.Export.Format))
	if out.Export.Format == "" {
		out.Export.Format = DefaultExportFormat
	}
	if out.Export.OutputDir == "" {
		out.Export.OutputDir = "."
	}
	if out.Export.MaxRowsPerSheet <= 0 {
		out.Export.MaxRowsPerSheet = DefaultMaxRowsPerSheet
	}

	if out.LogLevel == "" {
		out.LogLevel = "warn"
	}
	return &out
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceFile, SourceSQLite:
		if strings.TrimSpace(c.Source.Path) == "" {
			return fmt.Errorf("source.path is required for the %s source", c.Source.Kind)
		}
	case SourceREST:
		if strings.TrimSpace(c.Source.InstanceURL) == "" {
			return fmt.Errorf("source.instance_url is required for the rest source")
		}
	default:
		return fmt.Errorf("unknown source kind %q (expected file, sqlite or rest)", c.Source.Kind)
	}

	switch c.Export.Format {
	case "xlsx", "csv":
	default:
		return fmt.Errorf("unknown export format %q (expected xlsx or csv)", c.Export.Format)
	}
	return nil
}

// Load loads the configuration from the default location.
// Returns a default config if the file doesn't exist.
func Load() (*Config, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &Config{}, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &config, nil
}

// DefaultPath returns the default config file path.
// Checks ~/.config/qshape/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "qshape", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "qshape", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}

const defaultConfig = `# qshape configuration

# Where "run" keeps the last result set for "drill" and "export".
# state_dir = "state"

# log_level = "warn"

[source]
# file   - directory of <Object>.json / .yaml fixtures
# sqlite - database loaded with "qshape load"
# rest   - Salesforce-style REST API
kind = "file"
path = "."
# records_path = "$.records"
# page_size = 200
# batch_size = 2000

# instance_url = "https://example.my.salesforce.com"
# api_version = "59.0"
# token_env = "QSHAPE_ACCESS_TOKEN"

[export]
# format = "xlsx"
# output_dir = "."
# max_rows_per_sheet = 1000000

# Optional UI accent color for headers in terminal output.
# Supports ANSI color codes (0-255) or hex (#RRGGBB).
# [ui]
# accent = "39"
# code_theme = "monokai"
`

// CreateDefault creates a default config file if it doesn't exist.
func CreateDefault() (string, error) {
	return CreateDefaultAt(DefaultPath())
}

// CreateDefaultAt creates a default config file at path if it doesn't exist.
func CreateDefaultAt(configPath string) (string, error) {
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, nil
}
