package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/qshape/qshape/internal/config"
)

type globalConfigContext struct {
	cfg          *config.Config
	configPath   string
	stateDir     string
	configExists bool
}

// configField binds a `config set`/`config unset` flag to a config value.
type configField struct {
	flag  string
	key   string
	usage string
	ref   func(c *config.Config) *string
	check func(value string) error
}

var configFields = []configField{
	{flag: "state-path", key: "state_dir", usage: "Directory for the last result set",
		ref: func(c *config.Config) *string { return &c.StateDir }},
	{flag: "log-level", key: "log_level", usage: "Log level (debug|info|warn|error)",
		ref: func(c *config.Config) *string { return &c.LogLevel }, check: oneOf("debug", "info", "warn", "error")},
	{flag: "source-kind", key: "source.kind", usage: "Query source (file|sqlite|rest)",
		ref: func(c *config.Config) *string { return &c.Source.Kind }, check: oneOf(config.SourceFile, config.SourceSQLite, config.SourceREST)},
	{flag: "source-path", key: "source.path", usage: "Fixture directory or SQLite database",
		ref: func(c *config.Config) *string { return &c.Source.Path }},
	{flag: "records-path", key: "source.records_path", usage: "JSONPath of records inside fixture files",
		ref: func(c *config.Config) *string { return &c.Source.RecordsPath }},
	{flag: "instance-url", key: "source.instance_url", usage: "REST instance URL",
		ref: func(c *config.Config) *string { return &c.Source.InstanceURL }},
	{flag: "api-version", key: "source.api_version", usage: "REST API version",
		ref: func(c *config.Config) *string { return &c.Source.APIVersion }},
	{flag: "token-env", key: "source.token_env", usage: "Environment variable holding the REST access token",
		ref: func(c *config.Config) *string { return &c.Source.TokenEnv }},
	{flag: "format", key: "export.format", usage: "Default export format (xlsx|csv)",
		ref: func(c *config.Config) *string { return &c.Export.Format }, check: oneOf("xlsx", "csv")},
	{flag: "output-dir", key: "export.output_dir", usage: "Default export directory",
		ref: func(c *config.Config) *string { return &c.Export.OutputDir }},
	{flag: "ui-accent", key: "ui.accent", usage: "UI accent color (ANSI 0-255 or #RRGGBB)",
		ref: func(c *config.Config) *string { return &c.UI.Accent }},
	{flag: "ui-code-theme", key: "ui.code_theme", usage: "Markdown code theme name",
		ref: func(c *config.Config) *string { return &c.UI.CodeTheme }},
}

func oneOf(allowed ...string) func(string) error {
	return func(value string) error {
		for _, a := range allowed {
			if strings.EqualFold(value, a) {
				return nil
			}
		}
		return fmt.Errorf("must be one of: %s", strings.Join(allowed, ", "))
	}
}

func loadGlobalConfigContextAllowMissing() (*globalConfigContext, error) {
	path := config.ResolveConfigPath(configPath)
	exists := true
	if _, err := os.Stat(path); os.IsNotExist(err) {
		exists = false
	}

	loaded := &config.Config{}
	if exists {
		var err error
		loaded, err = config.LoadFrom(path)
		if err != nil {
			return nil, err
		}
	}

	return &globalConfigContext{
		cfg:          loaded,
		configPath:   path,
		stateDir:     config.ResolveStateDir(stateDirFlag, path, loaded),
		configExists: exists,
	}, nil
}

func configData(ctx *globalConfigContext) map[string]interface{} {
	eff := ctx.cfg.WithDefaults()
	return map[string]interface{}{
		"config_path": ctx.configPath,
		"state_dir":   ctx.stateDir,
		"exists":      ctx.configExists,
		"log_level":   eff.LogLevel,
		"source": map[string]interface{}{
			"kind":         eff.Source.Kind,
			"path":         eff.Source.Path,
			"records_path": eff.Source.RecordsPath,
			"page_size":    eff.Source.PageSize,
			"batch_size":   eff.Source.BatchSize,
			"instance_url": eff.Source.InstanceURL,
			"api_version":  eff.Source.APIVersion,
			"token_env":    eff.Source.TokenEnv,
		},
		"export": map[string]interface{}{
			"format":             eff.Export.Format,
			"output_dir":         eff.Export.OutputDir,
			"max_rows_per_sheet": eff.Export.MaxRowsPerSheet,
		},
		"ui": map[string]interface{}{
			"accent":     strings.TrimSpace(eff.UI.Accent),
			"code_theme": strings.TrimSpace(eff.UI.CodeTheme),
		},
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	ctx, err := loadGlobalConfigContextAllowMissing()
	if err != nil {
		return handleError(ErrConfigInvalid, err, "")
	}

	if isJSONOutput() {
		outputSuccess(configData(ctx), nil)
		return nil
	}

	out := cmd.OutOrStdout()
	if !ctx.configExists {
		fmt.Fprintf(out, "Config file does not exist: %s\n", ctx.configPath)
		fmt.Fprintln(out, "Run 'qshape config init' to create it.")
		return nil
	}

	eff := ctx.cfg.WithDefaults()
	fmt.Fprintf(out, "config: %s\n", ctx.configPath)
	fmt.Fprintf(out, "state:  %s\n", ctx.stateDir)
	for _, f := range configFields {
		if v := strings.TrimSpace(*f.ref(eff)); v != "" {
			fmt.Fprintf(out, "%s: %s\n", f.key, v)
		}
	}
	fmt.Fprintf(out, "source.page_size: %d\n", eff.Source.PageSize)
	fmt.Fprintf(out, "source.batch_size: %d\n", eff.Source.BatchSize)
	fmt.Fprintf(out, "export.max_rows_per_sheet: %d\n", eff.Export.MaxRowsPerSheet)
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage qshape config.toml settings",
	Long: `Manage qshape config.toml settings.

Use this to initialize, inspect, and edit the source and export configuration.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config.toml if missing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		targetPath := config.ResolveConfigPath(configPath)
		_, statErr := os.Stat(targetPath)
		existed := statErr == nil
		if statErr != nil && !os.IsNotExist(statErr) {
			return handleError(ErrFileReadError, statErr, "")
		}

		createdPath, err := config.CreateDefaultAt(targetPath)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"config_path": createdPath,
				"created":     !existed,
			}, nil)
			return nil
		}

		if existed {
			fmt.Fprintf(cmd.OutOrStdout(), "Config already exists: %s\n", createdPath)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Created config: %s\n", createdPath)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set one or more config.toml fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadGlobalConfigContextAllowMissing()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}

		changed, err := applyConfigSet(cmd.Flags(), ctx.cfg)
		if err != nil {
			return handleError(ErrInvalidInput, err, "")
		}
		if len(changed) == 0 {
			return handleErrorMsg(ErrMissingArgument, "no fields provided; pass at least one flag", "Run 'qshape config set --help' to see the fields")
		}
		return saveConfigChange(cmd, ctx, changed, "changed")
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset",
	Short: "Clear one or more config.toml fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := loadGlobalConfigContextAllowMissing()
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		if !ctx.configExists {
			return handleErrorMsg(ErrFileReadError, fmt.Sprintf("config file not found: %s", ctx.configPath), "Run 'qshape config init' first")
		}

		changed := applyConfigUnset(cmd.Flags(), ctx.cfg)
		if len(changed) == 0 {
			return handleErrorMsg(ErrMissingArgument, "no fields selected; pass one or more unset flags", "")
		}
		return saveConfigChange(cmd, ctx, changed, "cleared")
	},
}

// applyConfigSet copies every changed string flag and the numeric size flags
// into c, returning the config keys it touched.
func applyConfigSet(fs *pflag.FlagSet, c *config.Config) ([]string, error) {
	var changed []string
	for _, f := range configFields {
		if !fs.Changed(f.flag) {
			continue
		}
		value, _ := fs.GetString(f.flag)
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, fmt.Errorf("%s cannot be empty; use 'qshape config unset --%s' to clear it", f.flag, f.flag)
		}
		if f.check != nil {
			if err := f.check(value); err != nil {
				return nil, fmt.Errorf("%s %w", f.flag, err)
			}
			value = strings.ToLower(value)
		}
		*f.ref(c) = value
		changed = append(changed, f.key)
	}

	sizes := []struct {
		flag string
		key  string
		dst  *int
	}{
		{"page-size", "source.page_size", &c.Source.PageSize},
		{"batch-size", "source.batch_size", &c.Source.BatchSize},
		{"max-rows", "export.max_rows_per_sheet", &c.Export.MaxRowsPerSheet},
	}
	for _, s := range sizes {
		if !fs.Changed(s.flag) {
			continue
		}
		n, _ := fs.GetInt(s.flag)
		if n <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %d", s.flag, n)
		}
		*s.dst = n
		changed = append(changed, s.key)
	}
	return changed, nil
}

// applyConfigUnset clears every selected field of c.
func applyConfigUnset(fs *pflag.FlagSet, c *config.Config) []string {
	var changed []string
	for _, f := range configFields {
		if on, _ := fs.GetBool(f.flag); on {
			*f.ref(c) = ""
			changed = append(changed, f.key)
		}
	}
	return changed
}

func saveConfigChange(cmd *cobra.Command, ctx *globalConfigContext, changed []string, verb string) error {
	if err := config.SaveTo(ctx.configPath, ctx.cfg); err != nil {
		return handleError(ErrInternal, err, "")
	}
	ctx.configExists = true

	if isJSONOutput() {
		data := configData(ctx)
		data[verb] = changed
		outputSuccess(data, nil)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Updated config: %s\n", ctx.configPath)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", verb, strings.Join(changed, ", "))
	return nil
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current config.toml values",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})

	for _, f := range configFields {
		configSetCmd.Flags().String(f.flag, "", f.usage)
		configUnsetCmd.Flags().Bool(f.flag, false, "Clear "+f.key)
	}
	configSetCmd.Flags().Int("page-size", 0, "Records per page for 'run'")
	configSetCmd.Flags().Int("batch-size", 0, "Records per export batch")
	configSetCmd.Flags().Int("max-rows", 0, "Maximum rows per main sheet")

	rootCmd.AddCommand(configCmd)
}
