// Package testutil provides literal builders for records in tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/qshape/qshape/internal/record"
)

// Record builds a record from alternating name/value pairs. Values may be
// nil, string, bool, int, int64, float64, json.Number, record.Value,
// *record.Record, []*record.Record or *record.Collection. Nested objects are
// classified the way ingestion classifies them.
func Record(pairs ...any) *record.Record {
	if len(pairs)%2 != 0 {
		panic("testutil.Record: odd number of arguments")
	}
	r := record.New()
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("testutil.Record: field name must be a string, got %T", pairs[i]))
		}
		r.Set(name, Value(pairs[i+1]))
	}
	r.Settle()
	return r
}

// Value converts a Go literal into a record.Value.
func Value(v any) record.Value {
	switch t := v.(type) {
	case nil:
		return record.Null()
	case record.Value:
		return t
	case string:
		return record.String(t)
	case bool:
		return record.Bool(t)
	case int:
		return record.Int(t)
	case int64:
		return record.Number(json.Number(strconv.FormatInt(t, 10)))
	case float64:
		return record.Number(json.Number(strconv.FormatFloat(t, 'f', -1, 64)))
	case json.Number:
		return record.Number(t)
	case *record.Record:
		if t == nil {
			return record.Null()
		}
		return record.Classify(t)
	case []*record.Record:
		return record.Collect(record.List(t...))
	case *record.Collection:
		return record.Collect(t)
	}
	panic(fmt.Sprintf("testutil.Value: unsupported type %T", v))
}
