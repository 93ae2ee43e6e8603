package config

import (
	"path/filepath"
	"testing"
)

func TestResolveStateDir(t *testing.T) {
	configPath := filepath.FromSlash("/Users/me/.config/qshape/config.toml")

	t.Run("explicit state dir wins", func(t *testing.T) {
		got := ResolveStateDir("/tmp/custom", configPath, &Config{StateDir: "from-config"})
		if got != "/tmp/custom" {
			t.Fatalf("expected explicit state dir, got %q", got)
		}
	})

	t.Run("config state_dir absolute", func(t *testing.T) {
		got := ResolveStateDir("", configPath, &Config{StateDir: "/var/tmp/qshape"})
		want := filepath.Clean(filepath.FromSlash("/var/tmp/qshape"))
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	})

	t.Run("config state_dir relative to config dir", func(t *testing.T) {
		got := ResolveStateDir("", configPath, &Config{StateDir: "runtime/state"})
		want := filepath.Join(filepath.Dir(configPath), "runtime", "state")
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	})

	t.Run("fallback sibling state dir", func(t *testing.T) {
		got := ResolveStateDir("", configPath, nil)
		want := filepath.Join(filepath.Dir(configPath), "state")
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	})
}
