package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Column width bounds for RowsTable.
const (
	MinColumnWidth = 6
	MaxColumnWidth = 40

	columnGap  = 2
	leftMargin = 2
)

// TableCell is one rendered cell. Drillable cells (relationship markers) are
// highlighted with the accent color.
type TableCell struct {
	Text      string
	Drillable bool
}

// RowsTable renders flattened query rows with a numbered gutter.
type RowsTable struct {
	display *DisplayContext
	headers []string
	rows    [][]TableCell
}

// NewRowsTable creates a table with the given column headers.
func NewRowsTable(display *DisplayContext, headers []string) *RowsTable {
	if display == nil {
		display = NewDisplayContextWithWidth(DefaultTermWidth)
	}
	return &RowsTable{display: display, headers: headers}
}

// AddRow appends a row. Missing trailing cells render empty.
func (t *RowsTable) AddRow(cells ...TableCell) {
	row := make([]TableCell, len(t.headers))
	copy(row, cells)
	for i := range row {
		row[i].Text = singleLine(row[i].Text)
	}
	t.rows = append(t.rows, row)
}

// Len reports the number of rows added.
func (t *RowsTable) Len() int { return len(t.rows) }

// Widths returns the rendered width of each data column.
func (t *RowsTable) Widths() []int {
	natural := make([]int, len(t.headers))
	for i, h := range t.headers {
		natural[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell.Text); w > natural[i] {
				natural[i] = w
			}
		}
	}
	gutter := len(strconv.Itoa(len(t.rows))) + columnGap
	return FitWidths(natural, t.display.AvailableWidth(leftMargin+gutter))
}

// Render generates the table output as a string.
func (t *RowsTable) Render() string {
	if len(t.headers) == 0 {
		return ""
	}
	widths := t.Widths()

	headers := make([]string, 0, len(t.headers)+1)
	headers = append(headers, "#")
	for i, h := range t.headers {
		headers = append(headers, TruncateWithEllipsis(h, widths[i]))
	}

	data := make([][]string, len(t.rows))
	for r, row := range t.rows {
		line := make([]string, 0, len(row)+1)
		line = append(line, strconv.Itoa(r+1))
		for i, cell := range row {
			line = append(line, TruncateWithEllipsis(cell.Text, widths[i]))
		}
		data[r] = line
	}

	tbl := table.New().
		Border(lipgloss.Border{Middle: "─", Top: "─", Bottom: "─"}).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderRow(false).
		BorderColumn(false).
		BorderHeader(true).
		BorderStyle(Muted).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle()
			if col < len(headers)-1 {
				style = style.PaddingRight(columnGap)
			}
			if col == 0 {
				return style.Inherit(Muted).Align(lipgloss.Right)
			}
			if row == table.HeaderRow {
				return style.Inherit(AccentBold)
			}
			if row >= 0 && row < len(t.rows) && t.rows[row][col-1].Drillable {
				return style.Inherit(Accent)
			}
			return style
		}).
		Rows(data...)

	return tbl.Render()
}

// FitWidths caps each natural width at MaxColumnWidth and then shrinks the
// widest columns until the total fits available. Columns never shrink below
// MinColumnWidth (or their natural width when that is smaller).
func FitWidths(natural []int, available int) []int {
	widths := make([]int, len(natural))
	total := 0
	for i, w := range natural {
		if w > MaxColumnWidth {
			w = MaxColumnWidth
		}
		if w < 1 {
			w = 1
		}
		widths[i] = w
		total += w
	}
	total += columnGap * (len(widths) - 1)

	for total > available {
		widest := -1
		for i, w := range widths {
			if w > MinColumnWidth && (widest < 0 || w > widths[widest]) {
				widest = i
			}
		}
		if widest < 0 {
			break
		}
		widths[widest]--
		total--
	}
	return widths
}

// TruncateWithEllipsis truncates a string to maxLen runes, adding ellipsis if
// needed. It tries to break at word boundaries.
func TruncateWithEllipsis(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}

	truncated := string(runes[:maxLen-3])
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > len(truncated)/2 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}

func singleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n\t") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
