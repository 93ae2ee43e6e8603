package record

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Of builds a record from alternating name/value pairs for tests inside this
// package. Other packages use testutil.Record.
func Of(pairs ...any) *Record {
	if len(pairs)%2 != 0 {
		panic("record.Of: odd number of arguments")
	}
	r := New()
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("record.Of: field name must be a string, got %T", pairs[i]))
		}
		r.Set(name, FromAny(pairs[i+1]))
	}
	r.Settle()
	return r
}

// FromAny converts a Go value into a Value.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Int(t)
	case int64:
		return Number(json.Number(strconv.FormatInt(t, 10)))
	case float64:
		return Number(json.Number(strconv.FormatFloat(t, 'f', -1, 64)))
	case json.Number:
		return Number(t)
	case *Record:
		if t == nil {
			return Null()
		}
		return Classify(t)
	case []*Record:
		return Collect(List(t...))
	case *Collection:
		return Collect(t)
	}
	panic(fmt.Sprintf("record.FromAny: unsupported type %T", v))
}
