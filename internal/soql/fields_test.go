package soql

import (
	"reflect"
	"testing"
)

func TestExtractFields(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "subquery collapses to relationship",
			query: "SELECT Id, Name, (SELECT Id FROM Contacts) FROM Account",
			want:  []string{"Id", "Name", "Contacts"},
		},
		{
			name:  "lowercase keywords and extra whitespace",
			query: "  select   Id ,\n\tOwner.Name\nfrom   Account  ",
			want:  []string{"Id", "Owner.Name"},
		},
		{
			name:  "alias with AS keyword",
			query: "SELECT Name AS accountName, Industry FROM Account",
			want:  []string{"Name", "Industry"},
		},
		{
			name:  "bare alias after aggregate",
			query: "SELECT COUNT(Id) total, StageName FROM Opportunity GROUP BY StageName",
			want:  []string{"COUNT(Id)", "StageName"},
		},
		{
			name:  "function with spaces is not split",
			query: "SELECT toLabel( Status ), Id FROM Case",
			want:  []string{"toLabel( Status )", "Id"},
		},
		{
			name:  "subquery with where and commas",
			query: "SELECT Id, (SELECT Id, Name FROM Contacts WHERE Name IN ('a,b', 'c')) FROM Account",
			want:  []string{"Id", "Contacts"},
		},
		{
			name:  "semi-join after FROM is ignored",
			query: "SELECT Id FROM Account WHERE Id IN (SELECT AccountId FROM Contact)",
			want:  []string{"Id"},
		},
		{
			name:  "missing FROM",
			query: "SELECT Id, Name",
			want:  nil,
		},
		{
			name:  "unbalanced parentheses",
			query: "SELECT Id, (SELECT Id FROM Contacts FROM Account",
			want:  nil,
		},
		{
			name:  "extra closing parenthesis",
			query: "SELECT Id) FROM Account",
			want:  nil,
		},
		{
			name:  "empty",
			query: "",
			want:  nil,
		},
		{
			name:  "empty select list",
			query: "SELECT FROM Account",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractFields(tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractFields(%q) = %#v, want %#v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSourceObject(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{query: "SELECT Id, (SELECT Id FROM Contacts) FROM Account WHERE Name != null", want: "Account"},
		{query: "select id from contact limit 5", want: "contact"},
		{query: "SELECT Id", want: ""},
		{query: "SELECT Id FROM", want: ""},
	}
	for _, tt := range tests {
		if got := SourceObject(tt.query); got != tt.want {
			t.Errorf("SourceObject(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
		ok    bool
	}{
		{query: "SELECT Id FROM Account LIMIT 10", want: 10, ok: true},
		{query: "SELECT Id, (SELECT Id FROM Contacts LIMIT 2) FROM Account", ok: false},
		{query: "SELECT Id FROM Account limit abc", ok: false},
		{query: "SELECT Id FROM Account", ok: false},
	}
	for _, tt := range tests {
		got, ok := Limit(tt.query)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Limit(%q) = (%d, %v), want (%d, %v)", tt.query, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLexerTracksDepth(t *testing.T) {
	toks := Tokens("a (b, 'c)') d")
	want := []struct {
		typ   TokenType
		value string
		depth int
	}{
		{TokenIdent, "a", 0},
		{TokenLParen, "(", 0},
		{TokenIdent, "b", 1},
		{TokenComma, ",", 1},
		{TokenString, "'c)'", 1},
		{TokenRParen, ")", 0},
		{TokenIdent, "d", 0},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %#v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Value != w.value || toks[i].Depth != w.depth {
			t.Errorf("token %d = %+v, want %+v", i, toks[i], w)
		}
	}
}
