// Package envmap provides the ordered environment-variable mapping shared by
// the configuration resolver and the environment synchronizer.
package envmap

import (
	"bytes"
	"encoding/json"
)

// EnvMap is an ordered mapping of environment variable name to value.
// Keys are case-sensitive and unique; insertion order is preserved.
// The zero value is an empty map ready to use.
type EnvMap struct {
	keys   []string
	values map[string]string
}

// New builds an EnvMap from alternating key/value pairs.
// A trailing key without a value is ignored.
func New(pairs ...string) EnvMap {
	var m EnvMap
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// FromMap copies a plain map into an EnvMap using the given key order.
// Keys of src missing from order are dropped.
func FromMap(src map[string]string, order []string) EnvMap {
	var m EnvMap
	for _, k := range order {
		if v, ok := src[k]; ok {
			m.Set(k, v)
		}
	}
	return m
}

// Set stores value under key. An existing key keeps its position.
// Empty keys are ignored.
func (m *EnvMap) Set(key, value string) {
	if key == "" {
		return
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m EnvMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m EnvMap) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Delete removes key, preserving the order of the remaining keys.
func (m *EnvMap) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns a copy of the keys in insertion order.
func (m EnvMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m EnvMap) Len() int {
	return len(m.keys)
}

// Each calls fn for every entry in order until fn returns false.
func (m EnvMap) Each(fn func(key, value string) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns an independent copy.
func (m EnvMap) Clone() EnvMap {
	var out EnvMap
	m.Each(func(k, v string) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// Merge sets every entry of other on m; other wins on collision.
func (m *EnvMap) Merge(other EnvMap) {
	other.Each(func(k, v string) bool {
		m.Set(k, v)
		return true
	})
}

// Equal reports whether both maps hold the same entries in the same order.
func (m EnvMap) Equal(other EnvMap) bool {
	if m.Len() != other.Len() {
		return false
	}
	for i, k := range m.keys {
		if other.keys[i] != k || other.values[k] != m.values[k] {
			return false
		}
	}
	return true
}

// Map returns a plain, unordered copy.
func (m EnvMap) Map() map[string]string {
	out := make(map[string]string, len(m.keys))
	for _, k := range m.keys {
		out[k] = m.values[k]
	}
	return out
}

// StaleKeys returns the keys of prev that are absent from next, in prev's order.
func StaleKeys(prev, next EnvMap) []string {
	var stale []string
	for _, k := range prev.keys {
		if !next.Has(k) {
			stale = append(stale, k)
		}
	}
	return stale
}

// MarshalJSON encodes the map as a JSON object in key order.
func (m EnvMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
