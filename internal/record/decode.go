package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotRecords is returned when a document does not hold a list of records.
var ErrNotRecords = errors.New("document is not a list of records")

// DecodeValue reads one JSON value, preserving object field order.
func DecodeValue(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

// DecodeRecord reads a single JSON object as a record.
func DecodeRecord(r io.Reader) (*Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("decode json: expected object, got %v", tok)
	}
	obj, err := decodeObject(dec)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	obj.Settle()
	return obj, nil
}

// DecodeRecords reads a JSON array of objects.
func DecodeRecords(r io.Reader) ([]*Record, error) {
	v, err := DecodeValue(r)
	if err != nil {
		return nil, err
	}
	return Records(v)
}

// Records extracts the record list held by a decoded value: a plain array,
// or the embedded records of a collection wrapper.
func Records(v Value) ([]*Record, error) {
	c, ok := v.Collection()
	if !ok {
		return nil, ErrNotRecords
	}
	if !c.HasRecords() {
		return []*Record{}, nil
	}
	for _, item := range c.items {
		if item.Kind() != KindRecord {
			return nil, fmt.Errorf("%w: found %s item", ErrNotRecords, item.Kind())
		}
	}
	return c.Records(), nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return valueFromToken(dec, tok)
}

func valueFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj, err := decodeObject(dec)
			if err != nil {
				return Value{}, err
			}
			return Classify(obj), nil
		case '[':
			items, err := decodeArray(dec)
			if err != nil {
				return Value{}, err
			}
			return Collect(newList(items)), nil
		}
		return Value{}, fmt.Errorf("unexpected delimiter %q", t)
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

func decodeObject(dec *json.Decoder) (*Record, error) {
	obj := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		obj.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) ([]Value, error) {
	items := []Value{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return items, nil
}
