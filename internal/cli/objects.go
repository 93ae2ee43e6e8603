package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/qshape/qshape/internal/source"
	"github.com/qshape/qshape/internal/ui"
)

var objectsCmd = &cobra.Command{
	Use:   "objects",
	Short: "List the objects the configured source can query",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getConfig()
		if err := c.Validate(); err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		svc, err := openService(c)
		if err != nil {
			return handleError(ErrSourceUnavailable, err, "")
		}
		defer svc.Close()

		counts, err := objectCounts(cmd.Context(), svc)
		if err != nil {
			return handleError(ErrSourceUnavailable, err, "")
		}

		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)

		if isJSONOutput() {
			items := make([]map[string]interface{}, len(names))
			for i, name := range names {
				items[i] = map[string]interface{}{"object": name, "records": counts[name]}
			}
			outputSuccess(map[string]interface{}{"objects": items}, &Meta{Count: len(items)})
			return nil
		}

		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, ui.Hint("No objects."))
			return nil
		}
		for _, name := range names {
			if n := counts[name]; n >= 0 {
				fmt.Fprintf(out, "%s %s\n", ui.Accent.Render(name), ui.Hint(ui.Count(n, "record", "records")))
				continue
			}
			fmt.Fprintln(out, ui.Accent.Render(name))
		}
		return nil
	},
}

// objectCounts lists objects with record counts. File sources report -1
// since counting would parse every fixture.
func objectCounts(ctx context.Context, svc source.Service) (map[string]int, error) {
	switch s := svc.(type) {
	case *source.SQLiteService:
		return s.Objects(ctx)
	case *source.FileService:
		names, err := s.Objects()
		if err != nil {
			return nil, err
		}
		out := make(map[string]int, len(names))
		for _, n := range names {
			out[n] = -1
		}
		return out, nil
	}
	return nil, fmt.Errorf("this source cannot list its objects")
}

func init() {
	rootCmd.AddCommand(objectsCmd)
}
