package source

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qshape/qshape/internal/record"
	"github.com/qshape/qshape/internal/testutil"
)

func TestSQLiteImportAndQuery(t *testing.T) {
	svc, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "q.db"), 2, 3)
	require.NoError(t, err)
	defer svc.Close()
	ctx := context.Background()

	accounts := []*record.Record{
		testutil.Record("Id", "a1", "Name", "Acme", "Contacts", []*record.Record{testutil.Record("Id", "c1")}),
		testutil.Record("Id", "a2", "Owner", testutil.Record("Name", "Ann")),
		testutil.Record("Id", "a3"),
		testutil.Record("Id", "a4"),
	}
	require.NoError(t, svc.Import(ctx, "Account", accounts))

	recs, err := svc.Query(ctx, "SELECT Id FROM Account")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids(recs))

	all, err := svc.QueryAll(ctx, "SELECT Id FROM ACCOUNT")
	require.NoError(t, err)
	require.Len(t, all, 4)

	contacts, ok := all[0].Get("Contacts")
	require.True(t, ok)
	assert.Equal(t, record.KindCollection, contacts.Kind())
	owner, ok := all[1].Get("Owner")
	require.True(t, ok)
	assert.Equal(t, record.KindRecord, owner.Kind())

	first, err := svc.ExportBatch(ctx, "SELECT Id FROM Account", 0)
	require.NoError(t, err)
	assert.Len(t, first.Records, 3)
	assert.True(t, first.HasMore)
	assert.Equal(t, 4, first.TotalCount)

	second, err := svc.ExportBatch(ctx, "SELECT Id FROM Account", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a4"}, ids(second.Records))
	assert.False(t, second.HasMore)

	objects, err := svc.Objects(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Account": 4}, objects)
}

func TestSQLiteImportReplaces(t *testing.T) {
	svc, err := OpenSQLite(filepath.Join(t.TempDir(), "q.db"), 0, 0)
	require.NoError(t, err)
	defer svc.Close()
	ctx := context.Background()

	require.NoError(t, svc.Import(ctx, "Case", []*record.Record{testutil.Record("Id", "k1"), testutil.Record("Id", "k2")}))
	require.NoError(t, svc.Import(ctx, "Case", []*record.Record{testutil.Record("Id", "k3")}))

	recs, err := svc.QueryAll(ctx, "SELECT Id FROM Case")
	require.NoError(t, err)
	assert.Equal(t, []string{"k3"}, ids(recs))
}

func TestSQLiteUnknownObject(t *testing.T) {
	svc, err := OpenSQLite(filepath.Join(t.TempDir(), "q.db"), 0, 0)
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Query(context.Background(), "SELECT Id FROM Lead")
	require.ErrorIs(t, err, ErrUnknownObject)

	require.Error(t, svc.Import(context.Background(), " ", nil))
}
