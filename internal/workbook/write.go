package workbook

import (
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/xuri/excelize/v2"

	"github.com/qshape/qshape/internal/atomicfile"
)

// maxCellChars is the longest text a spreadsheet cell can hold.
const maxCellChars = 32767

// Safe runs fn and turns a panic into an error, so a failed assembly never
// takes the process down.
func Safe(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("workbook panic recovered", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("workbook: %v", r)
		}
	}()
	return fn()
}

// Write renders m as an xlsx file at path. The file only appears once it has
// been written completely.
func Write(m *Model, path string) error {
	return atomicfile.Write(path, 0o644, func(w io.Writer) error {
		return Render(m, w)
	})
}

// Render writes m as xlsx to w.
func Render(m *Model, w io.Writer) error {
	if len(m.Sheets) == 0 {
		return fmt.Errorf("workbook has no sheets")
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	first := f.GetSheetName(0)
	for i, sheet := range m.Sheets {
		if i == 0 {
			if err := f.SetSheetName(first, sheet.Name); err != nil {
				return fmt.Errorf("name sheet %q: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("add sheet %q: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet, styles); err != nil {
			return fmt.Errorf("sheet %q: %w", sheet.Name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

type styles struct {
	header int
	link   int
}

func newStyles(f *excelize.File) (styles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return styles{}, fmt.Errorf("header style: %w", err)
	}
	link, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#1265BE", Underline: "single"},
	})
	if err != nil {
		return styles{}, fmt.Errorf("link style: %w", err)
	}
	return styles{header: header, link: link}, nil
}

func writeSheet(f *excelize.File, sheet *Sheet, st styles) error {
	header := make([]any, len(sheet.Header))
	for i, h := range sheet.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return err
	}
	if len(header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet.Name, "A1", last, st.header); err != nil {
			return err
		}
	}

	for r, row := range sheet.Rows {
		values := make([]any, len(row))
		for c, cell := range row {
			values[c] = clip(cell.Value)
		}
		start, err := excelize.CoordinatesToCellName(1, r+1+headerRows)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.Name, start, &values); err != nil {
			return err
		}

		for c, cell := range row {
			if cell.Link == nil {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1+headerRows)
			if err != nil {
				return err
			}
			if err := f.SetCellHyperLink(sheet.Name, ref, cell.Link.Location(), "Location"); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet.Name, ref, ref, st.link); err != nil {
				return err
			}
		}
	}

	return f.SetPanes(sheet.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRows,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func clip(s string) string {
	if len(s) <= maxCellChars {
		return s
	}
	r := []rune(s)
	if len(r) <= maxCellChars {
		return s
	}
	return string(r[:maxCellChars])
}
