package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	goslug "github.com/gosimple/slug"

	"github.com/qshape/qshape/internal/shape"
)

// WriteCSV writes the flat view: a header of column labels, then one line per
// row with export-safe cell text.
func WriteCSV(w io.Writer, columns []string, rows []shape.Row) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = shape.Label(col)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	line := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			line[i] = row.Text(col)
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write csv row %d: %w", row.Index, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Filename builds an export file name from the queried object and a time,
// e.g. "account-export-20240131-154500.xlsx".
func Filename(object string, at time.Time, ext string) string {
	base := goslug.Make(object)
	if base == "" {
		base = "query"
	}
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s-export-%s.%s", base, at.Format("20060102-150405"), ext)
}
