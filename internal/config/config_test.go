package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithDefaults(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		var cfg *Config
		got := cfg.WithDefaults()
		if got.Source.Kind != SourceFile {
			t.Errorf("expected source kind %q, got %q", SourceFile, got.Source.Kind)
		}
		if got.Source.Path != "." {
			t.Errorf("expected source path '.', got %q", got.Source.Path)
		}
		if got.Source.RecordsPath != DefaultRecordsPath {
			t.Errorf("expected records path %q, got %q", DefaultRecordsPath, got.Source.RecordsPath)
		}
		if got.Export.MaxRowsPerSheet != DefaultMaxRowsPerSheet {
			t.Errorf("expected max rows %d, got %d", DefaultMaxRowsPerSheet, got.Export.MaxRowsPerSheet)
		}
		if got.Export.Format != "xlsx" {
			t.Errorf("expected xlsx format, got %q", got.Export.Format)
		}
	})

	t.Run("keeps configured values", func(t *testing.T) {
		cfg := &Config{
			Source: SourceConfig{Kind: " SQLite ", Path: "/tmp/q.db", PageSize: 50},
			Export: ExportConfig{Format: "CSV", MaxRowsPerSheet: 10},
		}
		got := cfg.WithDefaults()
		if got.Source.Kind != SourceSQLite {
			t.Errorf("expected normalized kind %q, got %q", SourceSQLite, got.Source.Kind)
		}
		if got.Source.PageSize != 50 {
			t.Errorf("expected page size 50, got %d", got.Source.PageSize)
		}
		if got.Export.Format != "csv" {
			t.Errorf("expected csv, got %q", got.Export.Format)
		}
		if got.Export.MaxRowsPerSheet != 10 {
			t.Errorf("expected max rows 10, got %d", got.Export.MaxRowsPerSheet)
		}
		if cfg.Source.Kind != " SQLite " {
			t.Error("WithDefaults must not modify the receiver")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "file ok", cfg: Config{Source: SourceConfig{Kind: SourceFile, Path: "."}}},
		{name: "rest needs url", cfg: Config{Source: SourceConfig{Kind: SourceREST}}, wantErr: "instance_url"},
		{name: "sqlite needs path", cfg: Config{Source: SourceConfig{Kind: SourceSQLite}}, wantErr: "source.path"},
		{name: "unknown kind", cfg: Config{Source: SourceConfig{Kind: "ftp"}}, wantErr: "unknown source kind"},
		{name: "unknown format", cfg: Config{Source: SourceConfig{Kind: SourceFile, Path: "."}, Export: ExportConfig{Format: "pdf"}}, wantErr: "unknown export format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if cfg.Export.Format == "" {
				cfg.Export.Format = "xlsx"
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadFrom(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.toml")
	content := `log_level = "debug"

[source]
kind = "rest"
instance_url = "https://example.test"

[export]
max_rows_per_sheet = 500
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source.Kind != SourceREST || cfg.Source.InstanceURL != "https://example.test" {
		t.Errorf("unexpected source config: %+v", cfg.Source)
	}
	if cfg.Export.MaxRowsPerSheet != 500 {
		t.Errorf("expected 500, got %d", cfg.Export.MaxRowsPerSheet)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug, got %q", cfg.LogLevel)
	}
}

func TestLoadFromInvalid(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.toml")
	if err := os.WriteFile(path, []byte("[source\nkind ="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCreateDefaultAt(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "nested", "config.toml")

	got, err := CreateDefaultAt(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("expected %q, got %q", path, got)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("default config must parse: %v", err)
	}
	if cfg.Source.Kind != SourceFile {
		t.Errorf("expected file source, got %q", cfg.Source.Kind)
	}

	if err := os.WriteFile(path, []byte("log_level = \"info\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDefaultAt(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "log_level = \"info\"\n" {
		t.Error("existing config must not be overwritten")
	}
}
