package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qshape/qshape/internal/config"
	"github.com/qshape/qshape/internal/source"
	"github.com/qshape/qshape/internal/ui"
)

var loadCmd = &cobra.Command{
	Use:   "load <fixture>...",
	Short: "Import JSON or YAML fixtures into the SQLite source",
	Long: `Import fixture files into a SQLite database usable as a query source.

Each file holds the records of one object and is named after it
(Account.json, Contact.yaml). A directory argument imports every fixture in
it. Importing an object again replaces its records.

The database is --db, or source.path when source.kind is "sqlite".

Examples:
  qshape load fixtures/
  qshape load Account.json Contact.yaml --db ./records.db`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoad,
}

type loadedObject struct {
	Object  string `json:"object"`
	File    string `json:"file"`
	Records int    `json:"records"`
}

func runLoad(cmd *cobra.Command, args []string) error {
	c := getConfig()
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" && c.Source.Kind == config.SourceSQLite {
		dbPath = c.Source.Path
	}
	if strings.TrimSpace(dbPath) == "" {
		return handleErrorMsg(ErrMissingArgument, "no database to load into",
			"Pass --db or set source.kind = \"sqlite\" and source.path in your config")
	}

	files, err := fixtureFiles(args)
	if err != nil {
		return handleError(ErrFileReadError, err, "")
	}
	if len(files) == 0 {
		return handleErrorMsg(ErrInvalidInput, "no .json, .yaml or .yml fixtures found", "")
	}

	sel, err := source.ParseSelector(c.Source.RecordsPath)
	if err != nil {
		return handleError(ErrConfigInvalid, err, "")
	}

	db, err := source.OpenSQLite(dbPath, c.Source.PageSize, c.Source.BatchSize)
	if err != nil {
		return handleError(ErrSourceUnavailable, err, "")
	}
	defer db.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	loaded := make([]loadedObject, 0, len(files))
	for _, f := range files {
		object := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		recs, err := source.ReadFixture(f, sel)
		if err != nil {
			return handleError(ErrFileReadError, err, "")
		}
		if err := db.Import(ctx, object, recs); err != nil {
			return handleError(ErrInternal, err, "")
		}
		slog.Debug("imported fixture", "object", object, "file", f, "records", len(recs))
		loaded = append(loaded, loadedObject{Object: object, File: f, Records: len(recs)})
	}

	if isJSONOutput() {
		outputSuccess(map[string]interface{}{
			"database": dbPath,
			"objects":  loaded,
		}, &Meta{Count: len(loaded)})
		return nil
	}

	out := cmd.OutOrStdout()
	for _, l := range loaded {
		fmt.Fprintln(out, ui.Successf("%s %s", l.Object, ui.Hint(ui.Count(l.Records, "record", "records"))))
	}
	fmt.Fprintf(out, "%s %s\n", ui.Hint("database:"), formatFileLink(dbPath, ui.FilePath))
	return nil
}

// fixtureFiles expands directory arguments into their fixture files.
func fixtureFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && isFixture(e.Name()) {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

func isFixture(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func init() {
	loadCmd.Flags().String("db", "", "SQLite database to load into (defaults to source.path)")
	rootCmd.AddCommand(loadCmd)
}
