// Package record defines the domain record kept in the user's domain list.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// JSON keys of the typed fields.
const (
	keyName      = "name"
	keyHost      = "host"
	keyAccessKey = "accessKey"
)

// typedKeys lists the typed fields in bit order of Domain.blank.
var typedKeys = [...]string{keyName, keyHost, keyAccessKey}

const blankAccessKey uint8 = 1 << 2

// Domain is a tracked collab domain. Name is the natural key used by lookups.
// Host and AccessKey are the fields the collab backend hands out; every other
// field is opaque and survives a JSON round trip unchanged.
type Domain struct {
	Name      string
	Host      string
	AccessKey string

	// blank marks typed keys decoded as "" so they are written back even when empty.
	blank uint8
	extra map[string]json.RawMessage
}

// New creates a domain record with the given name, host and access key.
func New(name, host, accessKey string) Domain {
	return Domain{
		Name:      name,
		Host:      host,
		AccessKey: accessKey,
	}
}

// SameName reports whether both records carry the same name.
func (d Domain) SameName(other Domain) bool {
	return d.Name == other.Name
}

// Field returns the raw JSON value of an opaque field.
func (d Domain) Field(key string) (json.RawMessage, bool) {
	raw, ok := d.extra[key]
	return raw, ok
}

// SetField stores value under key as an opaque field.
// Typed keys (name, host, accessKey) must be set through the struct fields.
func (d *Domain) SetField(key string, value any) error {
	switch key {
	case keyName, keyHost, keyAccessKey:
		return fmt.Errorf("field %q is typed, set it directly", key)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode field %q: %w", key, err)
	}

	if d.extra == nil {
		d.extra = make(map[string]json.RawMessage)
	}
	d.extra[key] = raw
	return nil
}

// FieldNames returns the sorted names of the opaque fields.
func (d Domain) FieldNames() []string {
	names := make([]string, 0, len(d.extra))
	for k := range d.extra {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the record.
func (d Domain) Clone() Domain {
	out := d
	if d.extra != nil {
		out.extra = make(map[string]json.RawMessage, len(d.extra))
		for k, v := range d.extra {
			out.extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// WithoutAccessKey returns a copy with the access key removed, whatever its JSON type.
func (d Domain) WithoutAccessKey() Domain {
	out := d.Clone()
	out.AccessKey = ""
	out.blank &^= blankAccessKey
	delete(out.extra, keyAccessKey)
	return out
}

// MarshalJSON implements json.Marshaler.
// A typed key is written when its field is set or when it was decoded as "".
// Otherwise any opaque value under the key (null, a number) is kept as is.
func (d Domain) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(d.extra)+len(typedKeys))
	for k, v := range d.extra {
		fields[k] = v
	}

	for i, value := range d.typedValues() {
		if value == "" && d.blank&(1<<i) == 0 {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		fields[typedKeys[i]] = raw
	}

	return json.Marshal(fields)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Domain) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("domain record must be a JSON object")
	}

	*d = Domain{}
	targets := [...]*string{&d.Name, &d.Host, &d.AccessKey}
	for i, key := range typedKeys {
		s, ok := takeString(fields, key)
		if !ok {
			continue
		}
		*targets[i] = s
		if s == "" {
			d.blank |= 1 << i
		}
	}

	for k, v := range fields {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		if d.extra == nil {
			d.extra = make(map[string]json.RawMessage, len(fields))
		}
		d.extra[k] = buf.Bytes()
	}

	return nil
}

func (d Domain) typedValues() [len(typedKeys)]string {
	return [...]string{d.Name, d.Host, d.AccessKey}
}

// takeString removes key from fields when it holds a JSON string and returns it.
// Null and non-string values stay in fields and are kept opaque.
func takeString(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	delete(fields, key)
	return s, true
}
