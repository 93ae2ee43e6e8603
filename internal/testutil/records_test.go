package testutil

import (
	"testing"

	"github.com/qshape/qshape/internal/record"
)

func TestRecordClassifiesLikeIngestion(t *testing.T) {
	rec := Record(
		"Id", "001",
		"Owner", Record("Name", "Ann"),
		"Account", Record("Name", "Acme"),
		"Account.Name", "Acme",
		"Cases", Record("totalSize", 3, "done", true),
		"Contacts", []*record.Record{Record("Id", "c1")},
		"Score", 7,
	)

	owner, _ := rec.Get("Owner")
	if owner.Kind() != record.KindRecord {
		t.Errorf("Owner kind = %s, want record", owner.Kind())
	}
	account, _ := rec.Get("Account")
	if !account.IsOpaque() {
		t.Error("Account should be opaque next to Account.Name")
	}
	cases, _ := rec.Get("Cases")
	coll, ok := cases.Collection()
	if !ok || !coll.IsWrapper() || coll.Count() != 3 || coll.HasRecords() {
		t.Errorf("Cases = %+v, want count-only wrapper of 3", cases)
	}
	contacts, _ := rec.Get("Contacts")
	if c, ok := contacts.Collection(); !ok || c.Count() != 1 {
		t.Errorf("Contacts = %+v, want list of 1", contacts)
	}
	score, _ := rec.Get("Score")
	if score.Text() != "7" {
		t.Errorf("Score = %q, want 7", score.Text())
	}
}

func TestRecordPanicsOnBadInput(t *testing.T) {
	tests := map[string]func(){
		"odd pairs":   func() { Record("Id") },
		"bad name":    func() { Record(1, "x") },
		"unsupported": func() { Value(struct{}{}) },
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			fn()
		})
	}
}
