package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/qshape/qshape/internal/atomicfile"
)

type persistedConfig struct {
	StateDir *string              `toml:"state_dir,omitempty"`
	LogLevel *string              `toml:"log_level,omitempty"`
	Source   *persistedSource     `toml:"source,omitempty"`
	Export   *persistedExport     `toml:"export,omitempty"`
	UI       *persistedUISettings `toml:"ui,omitempty"`
}

type persistedSource struct {
	Kind        *string `toml:"kind,omitempty"`
	Path        *string `toml:"path,omitempty"`
	RecordsPath *string `toml:"records_path,omitempty"`
	PageSize    int     `toml:"page_size,omitempty"`
	BatchSize   int     `toml:"batch_size,omitempty"`
	InstanceURL *string `toml:"instance_url,omitempty"`
	APIVersion  *string `toml:"api_version,omitempty"`
	TokenEnv    *string `toml:"token_env,omitempty"`
}

type persistedExport struct {
	Format          *string `toml:"format,omitempty"`
	OutputDir       *string `toml:"output_dir,omitempty"`
	MaxRowsPerSheet int     `toml:"max_rows_per_sheet,omitempty"`
}

type persistedUISettings struct {
	Accent    *string `toml:"accent,omitempty"`
	CodeTheme *string `toml:"code_theme,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// SaveTo writes the config to a specific path atomically. Empty values are
// omitted so defaults keep applying on load.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	out := persistedConfig{
		StateDir: nonEmptyPtr(cfg.StateDir),
		LogLevel: nonEmptyPtr(cfg.LogLevel),
	}

	src := persistedSource{
		Kind:        nonEmptyPtr(cfg.Source.Kind),
		Path:        nonEmptyPtr(cfg.Source.Path),
		RecordsPath: nonEmptyPtr(cfg.Source.RecordsPath),
		PageSize:    cfg.Source.PageSize,
		BatchSize:   cfg.Source.BatchSize,
		InstanceURL: nonEmptyPtr(cfg.Source.InstanceURL),
		APIVersion:  nonEmptyPtr(cfg.Source.APIVersion),
		TokenEnv:    nonEmptyPtr(cfg.Source.TokenEnv),
	}
	if src != (persistedSource{}) {
		out.Source = &src
	}

	exp := persistedExport{
		Format:          nonEmptyPtr(cfg.Export.Format),
		OutputDir:       nonEmptyPtr(cfg.Export.OutputDir),
		MaxRowsPerSheet: cfg.Export.MaxRowsPerSheet,
	}
	if exp != (persistedExport{}) {
		out.Export = &exp
	}

	accent := nonEmptyPtr(cfg.UI.Accent)
	codeTheme := nonEmptyPtr(cfg.UI.CodeTheme)
	if accent != nil || codeTheme != nil {
		out.UI = &persistedUISettings{
			Accent:    accent,
			CodeTheme: codeTheme,
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}

	return nil
}
