package record

import (
	"bytes"
)

// Collection is a to-many relationship. The query service returns either a
// plain array or a wrapper object carrying a total count and, when populated,
// the embedded records. Both normalize to "count + optional records".
type Collection struct {
	count   int
	items   []Value
	wrapper *Record
}

// List builds a plain-array collection from records.
func List(records ...*Record) *Collection {
	items := make([]Value, len(records))
	for i, r := range records {
		items[i] = Nested(r)
	}
	return &Collection{count: len(items), items: items}
}

func newList(items []Value) *Collection {
	return &Collection{count: len(items), items: items}
}

func newWrapper(total int, obj *Record) *Collection {
	c := &Collection{count: total, wrapper: obj}
	if v, ok := obj.Get(RecordsField); ok {
		if inner, ok := v.Collection(); ok && inner.wrapper == nil {
			c.items = inner.items
		}
	}
	return c
}

// Wrapper builds a count-bearing collection. records may be nil to model a
// wrapper that carries only a count.
func Wrapper(total int, records []*Record) *Collection {
	obj := New()
	obj.Set(CountField, Int(total))
	obj.Set("done", Bool(true))
	if records != nil {
		obj.Set(RecordsField, Collect(List(records...)))
	}
	return newWrapper(total, obj)
}

// Count returns the number of rows the collection reports. For wrappers this
// is the wrapper's count, regardless of embedded records.
func (c *Collection) Count() int {
	if c == nil {
		return 0
	}
	return c.count
}

// IsWrapper reports whether the collection came from a count-bearing object.
func (c *Collection) IsWrapper() bool {
	return c != nil && c.wrapper != nil
}

// HasRecords reports whether records are available to drill into. Plain
// arrays always have them (possibly zero); wrappers only when they embed a
// records array.
func (c *Collection) HasRecords() bool {
	if c == nil {
		return false
	}
	if c.wrapper == nil {
		return true
	}
	v, ok := c.wrapper.Get(RecordsField)
	if !ok {
		return false
	}
	_, isColl := v.Collection()
	return isColl
}

// Records returns the embedded records, skipping non-record array items.
func (c *Collection) Records() []*Record {
	if c == nil {
		return nil
	}
	out := make([]*Record, 0, len(c.items))
	for _, item := range c.items {
		if r, ok := item.Record(); ok {
			out = append(out, r)
		}
	}
	return out
}

// Clone returns a deep copy of c.
func (c *Collection) Clone() *Collection {
	if c == nil {
		return nil
	}
	if c.wrapper != nil {
		return newWrapper(c.count, c.wrapper.Clone())
	}
	items := make([]Value, len(c.items))
	for i, item := range c.items {
		items[i] = item.clone()
	}
	return newList(items)
}

// MarshalJSON writes the collection in the shape it was received in.
func (c *Collection) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	if c.wrapper != nil {
		return c.wrapper.MarshalJSON()
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range c.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := item.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
