package workbook

import (
	"fmt"
	"strings"
	"time"
)

var guideIntro = []string{
	"This workbook holds the results of one query.",
	"Cells that read \"N rows\" summarize a child relationship; click one to jump to its first child row.",
	"Each child sheet starts with ParentRowNumber, ParentId and ParentName. Click ParentRowNumber to return to the parent row.",
	"Child rows are grouped by parent row, then ordered by Id.",
}

func guideSheet(name string, m *Model) *Sheet {
	sheet := &Sheet{Name: name, Kind: KindGuide, Header: []string{"Sheet", "Contents", "Rows"}}
	for _, line := range guideIntro {
		sheet.Rows = append(sheet.Rows, []Cell{{Value: line}, {}, {}})
	}
	sheet.Rows = append(sheet.Rows, []Cell{{}, {}, {}})

	for _, s := range m.Sheets {
		target := Target{Sheet: s.Name, Row: 1}
		sheet.Rows = append(sheet.Rows, []Cell{
			{Value: s.Name, Link: &target},
			{Value: describe(s)},
			{Value: fmt.Sprint(len(s.Rows))},
		})
	}
	return sheet
}

func describe(s *Sheet) string {
	switch s.Kind {
	case KindMain:
		return "Main query results"
	case KindChild:
		return fmt.Sprintf("Child records from %s, linked to their parent rows", s.Relationship)
	}
	return ""
}

func infoSheet(name string, m *Model) *Sheet {
	mainRows, childRows := 0, 0
	for _, s := range m.Sheets {
		switch s.Kind {
		case KindMain:
			mainRows += len(s.Rows)
		case KindChild:
			childRows += len(s.Rows)
		}
	}

	// The guide and this sheet are not yet in m.Sheets.
	sheetCount := len(m.Sheets) + 2

	meta := m.Meta
	rows := [][2]string{
		{"Export ID", meta.ID},
		{"Query", meta.Query},
		{"Exported At", meta.ExportedAt.Format(time.RFC3339)},
		{"Total Records", fmt.Sprint(meta.TotalCount)},
		{"Main Rows", fmt.Sprint(mainRows)},
		{"Child Sheets", fmt.Sprint(len(m.SheetsOf(KindChild)))},
		{"Child Rows", fmt.Sprint(childRows)},
		{"Sheet Count", fmt.Sprint(sheetCount)},
	}
	if meta.MaxRowsPerSheet > 0 {
		rows = append(rows, [2]string{"Max Rows Per Sheet", fmt.Sprint(meta.MaxRowsPerSheet)})
	}

	sheet := &Sheet{Name: name, Kind: KindInfo, Header: []string{"Property", "Value"}}
	for _, kv := range rows {
		sheet.Rows = append(sheet.Rows, []Cell{{Value: kv[0]}, {Value: kv[1]}})
	}
	return sheet
}

// Markdown summarizes the workbook for terminal display.
func (m *Model) Markdown() string {
	var b strings.Builder
	b.WriteString("# Export summary\n\n")
	fmt.Fprintf(&b, "- **Export ID:** `%s`\n", m.Meta.ID)
	fmt.Fprintf(&b, "- **Records:** %d\n", m.Meta.TotalCount)
	fmt.Fprintf(&b, "- **Exported at:** %s\n\n", m.Meta.ExportedAt.Format(time.RFC3339))

	b.WriteString("## Sheets\n\n")
	b.WriteString("| Sheet | Contents | Rows |\n|---|---|---:|\n")
	for _, s := range m.Sheets {
		contents := describe(s)
		switch s.Kind {
		case KindGuide:
			contents = "How to navigate this workbook"
		case KindInfo:
			contents = "Export metadata"
		}
		fmt.Fprintf(&b, "| %s | %s | %d |\n", escapeCell(s.Name), escapeCell(contents), len(s.Rows))
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
