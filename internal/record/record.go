package record

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Record is an ordered mapping from field name to Value. Field order is the
// order the query service produced the fields in.
type Record struct {
	keys   []string
	fields map[string]Value
}

// New returns an empty record.
func New() *Record {
	return &Record{fields: make(map[string]Value)}
}

// IsMetadata reports whether a field name is the ignorable metadata field.
func IsMetadata(name string) bool {
	return name == MetadataField
}

// Set stores a value, appending the field name on first use.
func (r *Record) Set(name string, v Value) {
	if r.fields == nil {
		r.fields = make(map[string]Value)
	}
	if _, ok := r.fields[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.fields[name] = v
}

// Get returns the value stored under name.
func (r *Record) Get(name string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.fields[name]
	return v, ok
}

// Has reports whether the record carries the field.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Len returns the number of fields, metadata included.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns all field names in order, metadata included.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Each calls fn for every non-metadata field in order.
func (r *Record) Each(fn func(name string, v Value)) {
	if r == nil {
		return
	}
	for _, name := range r.keys {
		if IsMetadata(name) {
			continue
		}
		fn(name, r.fields[name])
	}
}

// ID returns the record identifier as text, or "" when absent.
func (r *Record) ID() string {
	v, ok := r.Get(IDField)
	if !ok || v.Kind() != KindScalar {
		return ""
	}
	return v.Text()
}

// Resolve walks a dot-delimited column path through nested records.
// A field whose own name contains the separator matches before the path is
// split. Missing or non-traversable segments report false.
func (r *Record) Resolve(path string) (Value, bool) {
	if r == nil || path == "" {
		return Value{}, false
	}
	if v, ok := r.fields[path]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(path, PathSeparator)
	if !found {
		return Value{}, false
	}
	v, ok := r.fields[head]
	if !ok {
		return Value{}, false
	}
	next := v.object()
	if next == nil {
		return Value{}, false
	}
	return next.Resolve(rest)
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		keys:   make([]string, len(r.keys)),
		fields: make(map[string]Value, len(r.fields)),
	}
	copy(out.keys, r.keys)
	for k, v := range r.fields {
		out.fields[k] = v.clone()
	}
	return out
}

// CloneAll deep-copies a result set.
func CloneAll(records []*Record) []*Record {
	if records == nil {
		return nil
	}
	out := make([]*Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// MarshalJSON writes the record as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := r.fields[name].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping field order and classifying
// every field.
func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := DecodeRecord(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*r = *rec
	return nil
}

// Settle marks nested records that have a pre-flattened sibling as opaque.
func (r *Record) Settle() {
	for _, name := range r.keys {
		v := r.fields[name]
		if v.Kind() != KindRecord {
			continue
		}
		if r.hasFlattenedSibling(name) {
			r.fields[name] = Opaque(v.record)
		}
	}
}

func (r *Record) hasFlattenedSibling(name string) bool {
	prefix := name + PathSeparator
	for _, k := range r.keys {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// Classify turns a decoded object into a field value: count-bearing objects
// become collection wrappers, everything else a nested record.
func Classify(obj *Record) Value {
	obj.Settle()
	count, ok := obj.Get(CountField)
	if !ok {
		return Nested(obj)
	}
	n, isNum := count.Scalar().(json.Number)
	if !isNum {
		return Nested(obj)
	}
	total, err := n.Int64()
	if err != nil {
		return Nested(obj)
	}
	return Collect(newWrapper(int(total), obj))
}
