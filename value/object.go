package value

import (
	"bytes"
	"encoding/json"
)

// Object is an insertion-ordered string-keyed map. The record engine's
// `@out` accumulator, mapping targets, and finalize.wrap all build values
// through Object so that field order in the emitted JSON record matches the
// order mappings wrote it in, matching the ordered-object guarantee in the
// value model's invariants. Go's encoding/json sorts map[string]any keys
// alphabetically on encode, which would silently violate that guarantee, so
// Object carries its own key order and a custom MarshalJSON.
type Object struct {
	keys []string
	data map[string]any
}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{data: map[string]any{}}
}

// ObjectFromMap builds an Object from a plain map, ordering keys
// lexicographically since a Go map carries no order of its own. Used at the
// boundary when a plain map[string]any literal (e.g. from a `value:`
// constant in the rule document) needs to become an Object.
func ObjectFromMap(m map[string]any) *Object {
	o := NewObject()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// stable, deterministic order for values with no natural order of their own
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	for _, k := range keys {
		o.Set(k, m[k])
	}
	return o
}

// Get returns the value at key and whether it was present.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.data[key]
	return v, ok
}

// Set writes key, appending it to the key order if it is new.
func (o *Object) Set(key string, v any) {
	if _, exists := o.data[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.data[key] = v
}

// Delete removes key, if present.
func (o *Object) Delete(key string) {
	if _, ok := o.data[key]; !ok {
		return
	}
	delete(o.data, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Clone returns a deep-enough copy: the key order and top-level entries are
// copied, nested Objects/arrays are shared (callers that mutate nested
// values in place must clone those explicitly).
func (o *Object) Clone() *Object {
	c := NewObject()
	if o == nil {
		return c
	}
	for _, k := range o.keys {
		c.Set(k, o.data[k])
	}
	return c
}

// Range iterates key/value pairs in insertion order; it stops early if fn
// returns false.
func (o *Object) Range(fn func(key string, v any) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.data[k]) {
			return
		}
	}
}

// ToMap materializes a plain, unordered map[string]any snapshot.
func (o *Object) ToMap() map[string]any {
	out := make(map[string]any, o.Len())
	o.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

// MarshalJSON writes the object's fields in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.data[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AsObject coerces v into an Object view. Plain map[string]any values (for
// example a YAML literal parsed by gopkg.in/yaml.v3, or the result of a
// `value:` constant) are accepted and given a deterministic key order since
// they carry none of their own.
func AsObject(v any) (*Object, bool) {
	switch t := v.(type) {
	case *Object:
		return t, true
	case map[string]any:
		return ObjectFromMap(t), true
	default:
		return nil, false
	}
}
