package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is a single metadata entry
type Field struct {
	Key   string
	Value string
}

// Metadata is an insertion ordered string map. It encodes to a JSON object whose
// keys keep their insertion order.
type Metadata []Field

// NewMetadata builds metadata from alternating key/value arguments. A trailing key
// without value is stored with an empty value.
func NewMetadata(kv ...string) Metadata {
	md := make(Metadata, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		v := ""
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		md = md.With(kv[i], v)
	}
	return md
}

// With returns a copy of md with key set to value. An existing key keeps its position.
func (md Metadata) With(key, value string) Metadata {
	out := make(Metadata, len(md), len(md)+1)
	copy(out, md)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Field{Key: key, Value: value})
}

// Get returns the value for key
func (md Metadata) Get(key string) (string, bool) {
	for _, f := range md {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Map returns an unordered copy
func (md Metadata) Map() map[string]string {
	m := make(map[string]string, len(md))
	for _, f := range md {
		m[f.Key] = f.Value
	}
	return m
}

// MarshalJSON encodes the metadata as an object in insertion order
func (md Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range md {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping the order of its keys
func (md *Metadata) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*md = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metadata: expected object, got %v", tok)
	}
	out := Metadata{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("metadata: expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("metadata: value for %q: %w", key, err)
		}
		out = append(out, Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*md = out
	return nil
}
