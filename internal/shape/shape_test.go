package shape

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qshape/qshape/internal/record"
	"github.com/qshape/qshape/internal/testutil"
)

func accounts() []*record.Record {
	return []*record.Record{
		testutil.Record(
			"attributes", testutil.Record("type", "Account"),
			"Id", "1",
			"Name", "Acme",
			"Contacts", []*record.Record{testutil.Record("Id", "c1"), testutil.Record("Id", "c2")},
		),
	}
}

func TestConvertAccountWithContacts(t *testing.T) {
	res := Convert(accounts(), "SELECT Id, Name, (SELECT Id FROM Contacts) FROM Account")

	require.False(t, res.Fallback)
	assert.Equal(t, []string{"Id", "Name", "Contacts"}, res.Columns)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, 0, row.Index)
	assert.Equal(t, "1", row.Text("Id"))
	assert.Equal(t, "Acme", row.Text("Name"))
	assert.Equal(t, "2 rows", row.Text("Contacts"))
}

func TestMarkerFormat(t *testing.T) {
	for _, n := range []int{0, 1, 2, 57} {
		rec := testutil.Record("Kids", record.List(make([]*record.Record, n)...))
		got := Cell(rec, "Kids")
		assert.Equal(t, fmt.Sprintf("%d rows", n), got.Text())
		assert.True(t, IsMarkerValue(got))
	}

	wrapper := testutil.Record("Kids", record.Wrapper(12, nil))
	assert.Equal(t, "12 rows", Cell(wrapper, "Kids").Text())

	assert.True(t, IsMarker("1 row"))
	assert.False(t, IsMarker("rows"))
	assert.False(t, IsMarker("3 rows and more"))
}

func TestDiscoverPathsGroupsNestedColumns(t *testing.T) {
	records := []*record.Record{
		testutil.Record("Id", "1", "Owner", testutil.Record("Name", "Ann"), "Stage", "New"),
		testutil.Record("Id", "2", "Owner", testutil.Record("Name", "Bo", "Email", "bo@x"), "Amount", 5),
	}

	paths, err := DiscoverPaths(records)
	require.NoError(t, err)
	assert.Equal(t, []string{"Id", "Owner.Name", "Owner.Email", "Stage", "Amount"}, paths)
}

func TestDiscoverPathsClassifiesEachPathOnce(t *testing.T) {
	records := []*record.Record{
		testutil.Record("Id", "1", "Owner", nil),
		testutil.Record("Id", "2", "Owner", testutil.Record("Name", "Bo")),
	}

	paths, err := DiscoverPaths(records)
	require.NoError(t, err)
	assert.Equal(t, []string{"Id", "Owner.Name"}, paths, "a populated container is never also a leaf")
}

func TestDiscoverPathsStopsAtCollectionsAndFlattenedFields(t *testing.T) {
	records := []*record.Record{
		testutil.Record(
			"Id", "1",
			"Account", testutil.Record("Name", "Acme", "Industry", "Tech"),
			"Account.Name", "Acme",
			"Cases", record.Wrapper(0, nil),
			"Contacts", []*record.Record{testutil.Record("Id", "c1", "Email", "e")},
		),
	}

	paths, err := DiscoverPaths(records)
	require.NoError(t, err)
	assert.Equal(t, []string{"Id", "Account", "Account.Name", "Cases", "Contacts"}, paths)
}

func TestDiscoverIsIdempotentAndSuperset(t *testing.T) {
	records := []*record.Record{
		testutil.Record("Id", "1", "A", "x"),
		testutil.Record("Id", "2", "B", testutil.Record("C", true)),
		testutil.Record("D", nil),
	}

	first, err := DiscoverPaths(records)
	require.NoError(t, err)
	second, err := DiscoverPaths(records)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for _, rec := range records {
		for _, key := range rec.Keys() {
			if key == "B" {
				key = "B.C"
			}
			assert.Contains(t, first, key)
		}
	}
}

func TestDiscoverColumnsFiltersToRequested(t *testing.T) {
	records := []*record.Record{
		testutil.Record("Id", "1", "Name", "A", "SystemModstamp", "t", "Owner", testutil.Record("Name", "Ann", "Id", "u1")),
	}

	cols, err := DiscoverColumns(records, []string{"Owner.Name", "Id", "name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Id", "Owner.Name"}, cols, "discovery order, case-sensitive")

	cols, err = DiscoverColumns(records, nil)
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestFlattenPreservesRowCount(t *testing.T) {
	records := []*record.Record{
		testutil.Record("Id", "1"),
		testutil.Record("Name", "only name"),
		testutil.Record(),
	}

	res := Convert(records, "SELECT Id, Name FROM Thing")
	require.Len(t, res.Rows, len(records))
	for i, row := range res.Rows {
		assert.Equal(t, i, row.Index)
	}
	assert.True(t, res.Rows[1].Get("Id").IsNull())
	assert.True(t, res.Rows[2].Get("Name").IsNull())
}

func TestFlattenKeepsScalarsUntouched(t *testing.T) {
	rec := testutil.Record("Flag", true, "Count", 3, "Empty", nil)
	rows := Flatten([]*record.Record{rec}, []string{"Flag", "Count", "Empty", "Missing"})

	assert.Equal(t, true, rows[0].Get("Flag").Scalar())
	assert.Equal(t, "3", rows[0].Text("Count"))
	assert.True(t, rows[0].Get("Empty").IsNull())
	assert.True(t, rows[0].Get("Missing").IsNull())
}

func TestFallbackFlatten(t *testing.T) {
	records := []*record.Record{
		testutil.Record("attributes", testutil.Record("type", "A"), "Id", "1", "Owner", testutil.Record("Name", "Ann"), "Kids", record.Wrapper(4, nil)),
		testutil.Record("Id", "2", "Extra", "x"),
	}

	rows, cols := Fallback(records)
	assert.Equal(t, []string{"Id", "Owner.Name", "Kids", "Extra"}, cols)
	require.Len(t, rows, 2)
	assert.Equal(t, "4 rows", rows[0].Text("Kids"))
	assert.Equal(t, "Ann", rows[0].Text("Owner.Name"))
	assert.Equal(t, 1, rows[1].Index)
}

func TestConvertFallsBackWhenTooDeep(t *testing.T) {
	deep := testutil.Record("Leaf", "x")
	for i := 0; i < MaxDepth+2; i++ {
		deep = testutil.Record("N", deep)
	}
	records := []*record.Record{testutil.Record("Id", "1", "Deep", deep)}

	_, err := DiscoverPaths(records)
	require.ErrorIs(t, err, ErrTooDeep)

	res := Convert(records, "SELECT Id FROM X")
	assert.True(t, res.Fallback)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "1", res.Rows[0].Text("Id"))
}

func TestConvertEmpty(t *testing.T) {
	res := Convert(nil, "SELECT Id FROM Account")
	assert.Empty(t, res.Columns)
	assert.Empty(t, res.Rows)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Owner Manager Name", Label("Owner.Manager.Name"))
	assert.Equal(t, "Id", Label("Id"))
}

func TestMergeColumns(t *testing.T) {
	got := MergeColumns([]string{"Id", "Name"}, []string{"Name", "Owner.Name", "Id", "Stage"})
	assert.Equal(t, "Id,Name,Owner.Name,Stage", strings.Join(got, ","))
}
