// Package cli implements the command-line interface.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qshape/qshape/internal/config"
	"github.com/qshape/qshape/internal/ui"
)

var (
	// Global flags
	configPath   string
	stateDirFlag string
	verbose      bool

	// Resolved values
	resolvedConfigPath string
	resolvedStateDir   string
	cfg                *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "qshape",
	Short: "qshape - flatten, drill into and export hierarchical query results",
	Long: `qshape runs SOQL-style queries against a record source and turns the
nested results into flat tables.

Child relationships show up as "{n} rows" markers that you can drill into,
and exports produce a multi-sheet workbook with hyperlinks between parent
rows and their children.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// config edits its own file and must work when that file is broken.
		switch cmd.Name() {
		case "version", "completion", "help":
			return nil
		}
		if cmd.Name() == "config" || (cmd.Parent() != nil && cmd.Parent().Name() == "config") {
			return nil
		}

		var err error
		cfg, resolvedConfigPath, err = loadGlobalConfigWithPath()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "Run 'qshape config init' to create a fresh config")
		}
		cfg = cfg.WithDefaults()
		resolvedStateDir = config.ResolveStateDir(stateDirFlag, resolvedConfigPath, cfg)

		setupLogging(cmd.ErrOrStderr(), cfg.LogLevel, verbose)
		ui.ConfigureTheme(cfg.UI.Accent)
		ui.ConfigureMarkdownCodeTheme(cfg.UI.CodeTheme)
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&stateDirFlag, "state-dir", "", "Directory for the last result set (overrides state_dir in config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// getConfig returns the loaded config with defaults applied.
func getConfig() *config.Config {
	if cfg == nil {
		return (&config.Config{}).WithDefaults()
	}
	return cfg
}

// getConfigPath returns the resolved global config path.
func getConfigPath() string {
	return resolvedConfigPath
}

// getStateDir returns the resolved state directory.
func getStateDir() string {
	return resolvedStateDir
}

func loadGlobalConfigWithPath() (*config.Config, string, error) {
	resolvedPath := config.ResolveConfigPath(configPath)

	var loadedCfg *config.Config
	var err error
	if strings.TrimSpace(configPath) != "" {
		loadedCfg, err = config.LoadFrom(configPath)
	} else {
		loadedCfg, err = config.Load()
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	if loadedCfg == nil {
		loadedCfg = &config.Config{}
	}

	return loadedCfg, resolvedPath, nil
}
