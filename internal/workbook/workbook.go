// Package workbook assembles an export into a multi-sheet workbook with links
// between collection marker cells and the child sheets they summarize.
package workbook

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/qshape/qshape/internal/export"
	"github.com/qshape/qshape/internal/record"
	"github.com/qshape/qshape/internal/shape"
)

// Fixed sheet titles.
const (
	MainSheet  = "Query Results"
	GuideSheet = "Navigation Guide"
	InfoSheet  = "Export Info"
)

// Injected child-row columns.
const (
	ParentRowNumberColumn = "ParentRowNumber"
	ParentIDColumn        = "ParentId"
	ParentNameColumn      = "ParentName"
)

// NoParentName is used when a parent has none of the name-like fields.
const NoParentName = "N/A"

// headerRows is the number of rows above the first data row.
const headerRows = 1

// maxSheetLinks is the most hyperlinks one worksheet may carry.
var maxSheetLinks = excelize.TotalSheetHyperlinks

var parentNameFields = []string{"Name", "Subject", "Title", "DeveloperName", "CaseNumber"}

// SheetKind identifies the role of a sheet.
type SheetKind string

const (
	KindMain  SheetKind = "main"
	KindChild SheetKind = "child"
	KindGuide SheetKind = "guide"
	KindInfo  SheetKind = "info"
)

// Target addresses a cell in the same workbook.
type Target struct {
	Sheet string
	Row   int // 1-based
}

// Location renders the target as a same-workbook hyperlink location.
func (t Target) Location() string {
	return fmt.Sprintf("'%s'!A%d", strings.ReplaceAll(t.Sheet, "'", "''"), t.Row)
}

// Cell is one exported value with an optional link.
type Cell struct {
	Value string
	Link  *Target
}

// Sheet is one tab of the workbook.
type Sheet struct {
	Name         string
	Kind         SheetKind
	Relationship string // child sheets only
	Header       []string
	Rows         [][]Cell
}

// Meta describes the export on the info sheet.
type Meta struct {
	ID              string
	Query           string
	ExportedAt      time.Time
	TotalCount      int
	MaxRowsPerSheet int
}

// Model is an assembled workbook, ready to write.
type Model struct {
	Meta   Meta
	Sheets []*Sheet
}

// Sheet returns the sheet with the given name.
func (m *Model) Sheet(name string) (*Sheet, bool) {
	for _, s := range m.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// SheetsOf returns the sheets of one kind in workbook order.
func (m *Model) SheetsOf(kind SheetKind) []*Sheet {
	var out []*Sheet
	for _, s := range m.Sheets {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// ChildRow is one child record annotated with its parent.
type ChildRow struct {
	ParentRowNumber int
	ParentID        string
	ParentName      string
	Record          *record.Record
}

// ChildSheet collects every child record of one relationship.
type ChildSheet struct {
	Relationship string
	Columns      []string
	Rows         []ChildRow
}

// Relationships returns the fields that hold a collection in any raw record,
// in first-seen order.
func Relationships(raw []*record.Record) []string {
	var names []string
	seen := make(map[string]bool)
	for _, rec := range raw {
		rec.Each(func(name string, v record.Value) {
			if v.Kind() != record.KindCollection || seen[name] {
				return
			}
			seen[name] = true
			names = append(names, name)
		})
	}
	return names
}

// BuildChildSheet gathers the records of one relationship across raw.
func BuildChildSheet(raw []*record.Record, relationship string) ChildSheet {
	cs := ChildSheet{Relationship: relationship}
	seen := make(map[string]bool)

	for p, parent := range raw {
		v, ok := parent.Get(relationship)
		if !ok {
			continue
		}
		coll, ok := v.Collection()
		if !ok || !coll.HasRecords() {
			continue
		}
		for _, child := range coll.Records() {
			cs.Rows = append(cs.Rows, ChildRow{
				ParentRowNumber: p + 1 + headerRows,
				ParentID:        parent.ID(),
				ParentName:      parentName(parent),
				Record:          child,
			})
			child.Each(func(name string, _ record.Value) {
				if seen[name] || injected(name) {
					return
				}
				seen[name] = true
				cs.Columns = append(cs.Columns, name)
			})
		}
	}

	SortChildRows(cs.Rows)
	return cs
}

// SortChildRows orders rows by parent row number, ties broken by child Id.
func SortChildRows(rows []ChildRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ParentRowNumber != b.ParentRowNumber {
			return a.ParentRowNumber < b.ParentRowNumber
		}
		return a.Record.ID() < b.Record.ID()
	})
}

func injected(name string) bool {
	return name == ParentRowNumberColumn || name == ParentIDColumn || name == ParentNameColumn
}

func parentName(rec *record.Record) string {
	for _, field := range parentNameFields {
		if v, ok := rec.Get(field); ok && v.Truthy() {
			return v.Text()
		}
	}
	return NoParentName
}

// Assemble builds the workbook for an export. rows are the flattened main
// rows; raw holds the records they came from, in the same order.
func Assemble(columns []string, rows []shape.Row, raw []*record.Record, meta Meta) (*Model, error) {
	if len(rows) != len(raw) {
		return nil, fmt.Errorf("assemble: %d rows for %d raw records", len(rows), len(raw))
	}
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.ExportedAt.IsZero() {
		meta.ExportedAt = time.Now()
	}
	if meta.TotalCount == 0 {
		meta.TotalCount = len(raw)
	}

	namer := NewNamer()
	model := &Model{Meta: meta}

	var children []ChildSheet
	childIndex := make(map[string]bool)
	for _, rel := range Relationships(raw) {
		cs := BuildChildSheet(raw, rel)
		if len(cs.Rows) == 0 {
			continue
		}
		children = append(children, cs)
		childIndex[rel] = true
	}

	// Each marker cell and each child row carries one link. Child sheets
	// split only at the link limit.
	linkColumns := 0
	for _, col := range columns {
		if childIndex[col] {
			linkColumns++
		}
	}
	mainPerPart := rowsPerPart(meta.MaxRowsPerSheet, linkColumns)
	childPerPart := rowsPerPart(0, 1)

	// Reserve fixed names first so relationship names cannot take them.
	parts := export.Split(rows, mainPerPart)
	mainNames := make([]string, len(parts))
	for i := range parts {
		mainNames[i] = namer.Name(partTitle(MainSheet, i, len(parts)))
	}
	guideName := namer.Name(GuideSheet)
	infoName := namer.Name(InfoSheet)

	childParts := make(map[string][]childPart, len(children))
	for _, cs := range children {
		ranges := chunk(len(cs.Rows), childPerPart)
		for i, r := range ranges {
			childParts[cs.Relationship] = append(childParts[cs.Relationship], childPart{
				name:  namer.Name(partTitle(cs.Relationship, i, len(ranges))),
				start: r[0],
				end:   r[1],
			})
		}
	}

	// parentTarget locates main row p across the split parts.
	perPart := len(rows)
	if len(parts) > 1 {
		perPart = mainPerPart
	}
	parentTarget := func(p int) Target {
		if perPart == 0 {
			return Target{Sheet: mainNames[0], Row: 1 + headerRows}
		}
		return Target{Sheet: mainNames[p/perPart], Row: p%perPart + 1 + headerRows}
	}

	// childTarget locates the first child row of parentRow, or the first
	// child row of the relationship when that parent has none.
	firstRows := make(map[string]map[int]int, len(children))
	for _, cs := range children {
		firstRows[cs.Relationship] = firstRowIndex(cs.Rows)
	}
	childTarget := func(rel string, parentRow int) Target {
		i := firstRows[rel][parentRow] // zero when absent
		cp := childParts[rel]
		k := 0
		if childPerPart > 0 {
			k = i / childPerPart
		}
		return Target{Sheet: cp[k].name, Row: i - cp[k].start + 1 + headerRows}
	}

	// Main sheets.
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = shape.Label(col)
	}
	p := 0
	for i, part := range parts {
		sheet := &Sheet{Name: mainNames[i], Kind: KindMain, Header: header}
		for _, row := range part {
			parentRow := p + 1 + headerRows
			cells := make([]Cell, len(columns))
			for c, col := range columns {
				cells[c] = Cell{Value: row.Text(col)}
				if !childIndex[col] || !shape.IsMarkerValue(row.Get(col)) {
					continue
				}
				target := childTarget(col, parentRow)
				cells[c].Link = &target
			}
			sheet.Rows = append(sheet.Rows, cells)
			p++
		}
		model.Sheets = append(model.Sheets, sheet)
	}

	// Child sheets.
	for _, cs := range children {
		childHeader := append([]string{ParentRowNumberColumn, ParentIDColumn, ParentNameColumn}, cs.Columns...)
		for _, cp := range childParts[cs.Relationship] {
			sheet := &Sheet{
				Name:         cp.name,
				Kind:         KindChild,
				Relationship: cs.Relationship,
				Header:       childHeader,
			}
			for _, cr := range cs.Rows[cp.start:cp.end] {
				back := parentTarget(cr.ParentRowNumber - 1 - headerRows)
				cells := make([]Cell, 0, len(childHeader))
				cells = append(cells,
					Cell{Value: fmt.Sprint(cr.ParentRowNumber), Link: &back},
					Cell{Value: cr.ParentID},
					Cell{Value: cr.ParentName},
				)
				for _, col := range cs.Columns {
					v, _ := cr.Record.Get(col)
					cells = append(cells, Cell{Value: v.Text()})
				}
				sheet.Rows = append(sheet.Rows, cells)
			}
			model.Sheets = append(model.Sheets, sheet)
		}
	}

	model.Sheets = append(model.Sheets, guideSheet(guideName, model), infoSheet(infoName, model))
	return model, nil
}

type childPart struct {
	name       string
	start, end int
}

func partTitle(base string, i, n int) string {
	if n <= 1 {
		return base
	}
	return fmt.Sprintf("%s %d", base, i+1)
}

// rowsPerPart caps maxRows so a part with linksPerRow links per row stays
// within maxSheetLinks. Zero means unlimited.
func rowsPerPart(maxRows, linksPerRow int) int {
	if linksPerRow <= 0 {
		return maxRows
	}
	limit := maxSheetLinks / linksPerRow
	if limit < 1 {
		limit = 1
	}
	if maxRows <= 0 || maxRows > limit {
		return limit
	}
	return maxRows
}

// chunk splits n items into [start, end) ranges of at most size items. It
// always returns at least one range.
func chunk(n, size int) [][2]int {
	if size <= 0 || n <= size {
		return [][2]int{{0, n}}
	}
	out := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// firstRowIndex maps each parent row number to the index of its first child
// in rows, which must already be sorted.
func firstRowIndex(rows []ChildRow) map[int]int {
	out := make(map[int]int)
	for i, cr := range rows {
		if _, ok := out[cr.ParentRowNumber]; !ok {
			out[cr.ParentRowNumber] = i
		}
	}
	return out
}
