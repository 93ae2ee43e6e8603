package source

import (
	"fmt"

	"github.com/ohler55/ojg/jp"

	"github.com/qshape/qshape/internal/record"
)

// Selector locates the record list inside a fixture envelope. It accepts the
// child and index subset of JSONPath ($.result.records, $.pages[0].records).
type Selector struct {
	expr jp.Expr
}

// ParseSelector parses a JSONPath expression.
func ParseSelector(path string) (*Selector, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", path, err)
	}
	for _, frag := range x {
		switch frag.(type) {
		case jp.Root, jp.Child, jp.Nth:
		default:
			return nil, fmt.Errorf("invalid jsonpath '%s': only child and index steps are supported", path)
		}
	}
	return &Selector{expr: x}, nil
}

func (s *Selector) String() string { return s.expr.String() }

// Records applies the selector to doc and returns the records it points at.
// A document that is already a list is returned as is.
func (s *Selector) Records(doc record.Value) ([]*record.Record, error) {
	if c, ok := doc.Collection(); ok && !c.IsWrapper() {
		return record.Records(doc)
	}

	cur := doc
	for _, frag := range s.expr {
		var ok bool
		switch f := frag.(type) {
		case jp.Root:
			continue
		case jp.Child:
			cur, ok = cur.Field(string(f))
		case jp.Nth:
			cur, ok = cur.Item(int(f))
		}
		if !ok {
			return nil, fmt.Errorf("jsonpath %s matched nothing", s.expr)
		}
	}
	return record.Records(cur)
}
