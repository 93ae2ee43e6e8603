package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
)

// hyperlinkEnabled caches whether we should emit hyperlinks.
// Hyperlinks are only emitted to TTY terminals, not JSON output or pipes.
var hyperlinkEnabled *bool

// shouldEmitHyperlinks returns true if we should emit OSC 8 hyperlinks.
func shouldEmitHyperlinks() bool {
	if hyperlinkEnabled != nil {
		return *hyperlinkEnabled
	}

	enabled := !jsonOutput && isatty.IsTerminal(os.Stdout.Fd())
	hyperlinkEnabled = &enabled
	return enabled
}

// fileURL builds a file:// URL for path.
func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}

// formatFileLink renders path, clickable when the terminal supports it.
func formatFileLink(path string, render func(string) string) string {
	if render == nil {
		render = func(s string) string { return s }
	}
	if !shouldEmitHyperlinks() {
		return render(path)
	}
	return render(fmt.Sprintf("\x1b]8;;%s\x07%s\x1b]8;;\x07", fileURL(path), path))
}
