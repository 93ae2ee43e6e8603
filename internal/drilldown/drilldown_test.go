package drilldown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qshape/qshape/internal/record"
	"github.com/qshape/qshape/internal/shape"
	"github.com/qshape/qshape/internal/testutil"
)

func raw() []*record.Record {
	return []*record.Record{
		testutil.Record("Id", "1", "Name", "Acme", "Contacts", []*record.Record{
			testutil.Record("attributes", testutil.Record("type", "Contact"), "Id", "c1"),
			testutil.Record("Id", "c2"),
		}),
		testutil.Record("Id", "2", "Name", "Globex",
			"Contacts", record.Wrapper(4, nil),
			"Cases", record.Wrapper(2, []*record.Record{
				testutil.Record("Id", "k1", "Subject", "Broken"),
				testutil.Record("Id", "k2", "Priority", "High"),
			}),
			"Tasks", []*record.Record{},
			"Owner", testutil.Record("Name", "Ann"),
		),
	}
}

func TestResolveChild(t *testing.T) {
	child, ok := ResolveChild(raw(), 0, "Contacts")
	require.True(t, ok)
	assert.Len(t, child.Records, 2)
	assert.Equal(t, []Column{{Label: "Id", FieldName: "Id"}}, child.Columns)
	assert.Equal(t, "Contacts (2 records)", child.Title())
}

func TestResolveChildWrapperWithRecords(t *testing.T) {
	child, ok := ResolveChild(raw(), 1, "Cases")
	require.True(t, ok)
	assert.Equal(t, []Column{
		{Label: "Id", FieldName: "Id"},
		{Label: "Subject", FieldName: "Subject"},
		{Label: "Priority", FieldName: "Priority"},
	}, child.Columns)

	rows := child.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "Broken", rows[0].Text("Subject"))
	assert.True(t, rows[0].Get("Priority").IsNull())
}

func TestResolveChildNoOps(t *testing.T) {
	tests := []struct {
		name  string
		index int
		field string
	}{
		{name: "index past end", index: 5, field: "Contacts"},
		{name: "negative index", index: -1, field: "Contacts"},
		{name: "missing field", index: 0, field: "Cases"},
		{name: "wrapper without records", index: 1, field: "Contacts"},
		{name: "empty array", index: 1, field: "Tasks"},
		{name: "scalar field", index: 0, field: "Name"},
		{name: "nested record", index: 1, field: "Owner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			child, ok := ResolveChild(raw(), tt.index, tt.field)
			assert.False(t, ok)
			assert.Nil(t, child)
		})
	}
}

func TestRecoverIndex(t *testing.T) {
	records := raw()
	res := shape.Convert(records, "SELECT Id, Name, (SELECT Id FROM Contacts) FROM Account")

	t.Run("carried index", func(t *testing.T) {
		idx, ok := RecoverIndex(records, res.Rows, res.Rows[1])
		assert.True(t, ok)
		assert.Equal(t, 1, idx)
	})

	t.Run("stale carried index", func(t *testing.T) {
		row := shape.Row{Index: 9, Cells: res.Rows[0].Cells}
		_, ok := RecoverIndex(records, res.Rows, row)
		assert.False(t, ok)
	})

	t.Run("by id", func(t *testing.T) {
		row := shape.Row{Index: shape.NoIndex, Cells: map[string]record.Value{"Id": record.String("2")}}
		idx, ok := RecoverIndex(records, res.Rows, row)
		assert.True(t, ok)
		assert.Equal(t, 1, idx)
	})

	t.Run("by field equality", func(t *testing.T) {
		row := shape.Row{Index: shape.NoIndex, Cells: map[string]record.Value{
			"Name":     record.String("Globex"),
			"Contacts": record.String("4 rows"),
		}}
		idx, ok := RecoverIndex(records, res.Rows, row)
		assert.True(t, ok)
		assert.Equal(t, 1, idx)
	})

	t.Run("unknown id falls through to field equality", func(t *testing.T) {
		row := shape.Row{Index: shape.NoIndex, Cells: map[string]record.Value{
			"Id":   record.String("1"),
			"Name": record.String("Acme"),
		}}
		idx, ok := RecoverIndex(records[1:], res.Rows, row)
		assert.True(t, ok)
		assert.Equal(t, 0, idx)
	})

	t.Run("nothing matches", func(t *testing.T) {
		row := shape.Row{Index: shape.NoIndex, Cells: map[string]record.Value{"Name": record.String("Nobody")}}
		_, ok := RecoverIndex(records, res.Rows, row)
		assert.False(t, ok)
	})
}

func TestIsCollectionColumn(t *testing.T) {
	res := shape.Convert(raw(), "SELECT Id, Name, (SELECT Id FROM Contacts) FROM Account")
	assert.True(t, IsCollectionColumn(res.Rows, "Contacts"))
	assert.False(t, IsCollectionColumn(res.Rows, "Name"))
	assert.False(t, IsCollectionColumn(nil, "Contacts"))
}
