// Package record models hierarchical query results.
//
// A result set is a list of records. Each record field holds exactly one of:
//   - a scalar (null, bool, number, string),
//   - a nested record (a to-one relationship),
//   - a collection (a to-many relationship, either a plain array or a
//     count-bearing wrapper).
//
// Classification happens once, at ingestion, so every later stage switches
// over Kind instead of probing shapes.
package record

import (
	"encoding/json"
	"strconv"
)

const (
	// IDField is the identifier field carried by query results.
	IDField = "Id"

	// MetadataField is the per-record metadata object every consumer ignores.
	MetadataField = "attributes"

	// PathSeparator joins field names into column paths.
	PathSeparator = "."

	// CountField marks an object as a count-bearing collection wrapper.
	CountField = "totalSize"

	// RecordsField holds the embedded records of a collection wrapper.
	RecordsField = "records"
)

// Kind classifies a Value.
type Kind uint8

const (
	KindScalar Kind = iota
	KindRecord
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindCollection:
		return "collection"
	default:
		return "scalar"
	}
}

// Value is a single field value. The zero Value is a null scalar.
type Value struct {
	kind   Kind
	scalar any // nil, bool, json.Number or string
	record *Record
	coll   *Collection
}

// Null returns a null scalar.
func Null() Value { return Value{} }

// String returns a string scalar.
func String(s string) Value { return Value{scalar: s} }

// Bool returns a boolean scalar.
func Bool(b bool) Value { return Value{scalar: b} }

// Number returns a numeric scalar.
func Number(n json.Number) Value { return Value{scalar: n} }

// Int returns a numeric scalar for an integer.
func Int(n int) Value { return Number(json.Number(strconv.Itoa(n))) }

// Nested returns a nested-record value.
func Nested(r *Record) Value {
	if r == nil {
		return Null()
	}
	return Value{kind: KindRecord, record: r}
}

// Opaque returns a scalar that wraps a record. Used for objects that already
// have a pre-flattened sibling, so nothing recurses into them.
func Opaque(r *Record) Value {
	if r == nil {
		return Null()
	}
	return Value{kind: KindScalar, record: r}
}

// Collect returns a collection value.
func Collect(c *Collection) Value {
	if c == nil {
		return Null()
	}
	return Value{kind: KindCollection, coll: c}
}

// Kind reports the classification of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is a null scalar.
func (v Value) IsNull() bool {
	return v.kind == KindScalar && v.scalar == nil && v.record == nil
}

// IsOpaque reports whether v is a scalar wrapping a record.
func (v Value) IsOpaque() bool {
	return v.kind == KindScalar && v.record != nil
}

// Scalar returns the scalar payload: nil, bool, json.Number, string, or the
// wrapped *Record for opaque scalars. It returns nil for non-scalars.
func (v Value) Scalar() any {
	if v.kind != KindScalar {
		return nil
	}
	if v.record != nil {
		return v.record
	}
	return v.scalar
}

// Record returns the nested record when v is KindRecord.
func (v Value) Record() (*Record, bool) {
	if v.kind != KindRecord {
		return nil, false
	}
	return v.record, true
}

// object returns any record v carries, nested or opaque.
func (v Value) object() *Record {
	if v.kind == KindCollection {
		return nil
	}
	return v.record
}

// Collection returns the collection when v is KindCollection.
func (v Value) Collection() (*Collection, bool) {
	if v.kind != KindCollection {
		return nil, false
	}
	return v.coll, true
}

// Truthy mirrors the "present and non-empty" test used before drilling into
// a field: null, false, zero and the empty string are falsy.
func (v Value) Truthy() bool {
	if v.kind != KindScalar || v.record != nil {
		return true
	}
	switch s := v.scalar.(type) {
	case nil:
		return false
	case bool:
		return s
	case string:
		return s != ""
	case json.Number:
		f, err := s.Float64()
		return err != nil || f != 0
	}
	return true
}

// Text renders v as an export-safe string: null is empty, booleans and numbers
// become their literal text, records and collections become JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindRecord, KindCollection:
		return v.jsonText()
	}
	if v.record != nil {
		return v.jsonText()
	}
	switch s := v.scalar.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(s)
	case json.Number:
		return s.String()
	case string:
		return s
	}
	return ""
}

func (v Value) jsonText() string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// Equal reports whether two values are the same. Scalars compare by value;
// records and collections compare by identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindRecord:
		return v.record == o.record
	case KindCollection:
		return v.coll == o.coll
	}
	if v.record != nil || o.record != nil {
		return v.record == o.record
	}
	return v.scalar == o.scalar
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindRecord:
		return v.record.MarshalJSON()
	case KindCollection:
		return v.coll.MarshalJSON()
	}
	if v.record != nil {
		return v.record.MarshalJSON()
	}
	if n, ok := v.scalar.(json.Number); ok {
		if n == "" {
			return []byte("0"), nil
		}
		return []byte(n), nil
	}
	return json.Marshal(v.scalar)
}

func (v Value) clone() Value {
	switch {
	case v.kind == KindCollection:
		return Value{kind: v.kind, coll: v.coll.Clone()}
	case v.record != nil:
		return Value{kind: v.kind, record: v.record.Clone()}
	}
	return v
}

// Field looks up name on a record, an opaque record, or the envelope of a
// collection wrapper.
func (v Value) Field(name string) (Value, bool) {
	if v.kind == KindCollection {
		if v.coll.wrapper == nil {
			return Value{}, false
		}
		return v.coll.wrapper.Get(name)
	}
	if v.record != nil {
		return v.record.Get(name)
	}
	return Value{}, false
}

// Item returns element i of a collection, counting from the end when i is
// negative.
func (v Value) Item(i int) (Value, bool) {
	if v.kind != KindCollection {
		return Value{}, false
	}
	items := v.coll.items
	if i < 0 {
		i += len(items)
	}
	if i < 0 || i >= len(items) {
		return Value{}, false
	}
	return items[i], true
}
