package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field is a single key/value pair of a Row.
type Field struct {
	Value any
	Key   string
}

// Row is a tabular record whose JSON key order is preserved. Numbers decoded from JSON
// are kept as json.Number so identifiers and amounts are not rounded.
type Row struct {
	index  map[string]int
	fields []Field
}

// NewRow builds a row from fields in order. Later duplicates overwrite earlier values.
func NewRow(fields ...Field) Row {
	var r Row
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Set assigns value to key, appending the key if it is new.
func (r *Row) Set(key string, value any) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[key]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

// Get returns the value stored under key.
func (r Row) Get(key string) (any, bool) {
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Keys returns the row keys in order.
func (r Row) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns a copy of the ordered fields.
func (r Row) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Int returns the value under key as an integer, or 0 when it is missing or not
// numeric.
func (r Row) Int(key string) int {
	v, _ := r.Get(key)
	return AsInt(v)
}

// Text returns the value under key as text.
func (r Row) Text(key string) string {
	v, _ := r.Get(key)
	return AsString(v)
}

// Strings returns the value under key as a list of strings, or nil when it is not a
// list.
func (r Row) Strings(key string) []string {
	v, _ := r.Get(key)
	return AsStrings(v)
}

// Object returns the nested object under key, or nil when it is not an object.
func (r Row) Object(key string) map[string]any {
	v, _ := r.Get(key)
	obj, _ := v.(map[string]any)
	return obj
}

// Len returns the number of fields.
func (r Row) Len() int {
	return len(r.fields)
}

// MarshalJSON encodes the row as a JSON object in key order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping its key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	*r = Row{}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row must be a JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("row key must be a string, got %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to decode field %q: %w", key, err)
		}
		r.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// AsFloat converts a decoded JSON value to a float. Numeric strings are accepted;
// anything else is 0.
func AsFloat(v any) float64 {
	var f float64
	var err error
	switch n := v.(type) {
	case json.Number:
		f, err = n.Float64()
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// AsInt converts a decoded JSON value to an integer. Integral floats such as 10.0 are
// accepted; fractions are truncated.
func AsInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return int(i)
		}
	}
	return int(AsFloat(v))
}

// AsString converts a decoded JSON scalar to text. nil is the empty string.
func AsString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

// AsStrings converts a decoded JSON list to strings, or nil when v is not a list.
func AsStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = AsString(item)
	}
	return out
}
