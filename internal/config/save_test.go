package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveToRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.toml")

	cfg := &Config{
		Source: SourceConfig{Kind: SourceSQLite, Path: "/tmp/records.db", BatchSize: 100},
		Export: ExportConfig{MaxRowsPerSheet: 250},
		UI:     UIConfig{Accent: "39"},
	}

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo returned error: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}

	if loaded.Source.Kind != SourceSQLite || loaded.Source.Path != "/tmp/records.db" {
		t.Fatalf("unexpected source: %+v", loaded.Source)
	}
	if loaded.Source.BatchSize != 100 {
		t.Fatalf("expected batch_size=100, got %d", loaded.Source.BatchSize)
	}
	if loaded.Export.MaxRowsPerSheet != 250 {
		t.Fatalf("expected max_rows_per_sheet=250, got %d", loaded.Export.MaxRowsPerSheet)
	}
	if loaded.UI.Accent != "39" {
		t.Fatalf("expected accent 39, got %q", loaded.UI.Accent)
	}
}

func TestSaveToOmitsEmptySections(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.toml")

	if err := SaveTo(path, &Config{LogLevel: "info"}); err != nil {
		t.Fatalf("SaveTo returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "[source]") || strings.Contains(string(data), "[export]") {
		t.Fatalf("expected empty sections to be omitted, got:\n%s", data)
	}
}

func TestSaveToRequiresPath(t *testing.T) {
	if err := SaveTo(" ", &Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
