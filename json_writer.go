package bookkeeping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// recordWriter assembles a JSON object field by field. Fields are written in
// the order they were first set, which keeps book exports stable.
//
// The zero value is an empty object.
type recordWriter struct {
	keys   []string
	values map[string]json.RawMessage
	err    error
}

func (w *recordWriter) put(key string, raw json.RawMessage) {
	if w.values == nil {
		w.values = make(map[string]json.RawMessage)
	}
	if _, exists := w.values[key]; !exists {
		w.keys = append(w.keys, key)
	}
	w.values[key] = raw
}

// Set marshals value under key. Setting a key twice overwrites the value but
// keeps its original position.
func (w *recordWriter) Set(key string, value any) *recordWriter {
	if w.err != nil {
		return w
	}
	raw, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("field %q: %w", key, err)
		return w
	}
	w.put(key, raw)
	return w
}

// SetNonZero is like Set but skips zero values.
func (w *recordWriter) SetNonZero(key string, value any) *recordWriter {
	if v := reflect.ValueOf(value); !v.IsValid() || v.IsZero() {
		return w
	}
	return w.Set(key, value)
}

// MergeRaw copies every field of a raw JSON object, in order.
func (w *recordWriter) MergeRaw(raw []byte) *recordWriter {
	if w.err != nil {
		return w
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		w.err = fmt.Errorf("merge: not a JSON object")
		return w
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			w.err = fmt.Errorf("merge: %w", err)
			return w
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			w.err = fmt.Errorf("merge %q: %w", tok, err)
			return w
		}
		w.put(tok.(string), value)
	}
	return w
}

// Merge marshals v, which must encode as an object, and copies its fields.
func (w *recordWriter) Merge(v any) *recordWriter {
	if w.err != nil {
		return w
	}
	raw, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("merge: %w", err)
		return w
	}
	return w.MergeRaw(raw)
}

// MarshalJSON returns the assembled object, or the first error met while
// building it.
func (w *recordWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range w.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(w.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
