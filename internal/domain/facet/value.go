package facet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Separator joins the levels of a hierarchical facet value (country:::share, tag paths, combined facets).
const Separator = ":::"

// Join joins hierarchy levels with Separator.
func Join(parts ...string) string { return strings.Join(parts, Separator) }

// Scalar is a single facet value: a string or a number.
type Scalar struct {
	str     string
	num     float64
	numeric bool
}

// String creates a string scalar.
func String(s string) Scalar { return Scalar{str: s} }

// Number creates a numeric scalar.
func Number(n float64) Scalar { return Scalar{num: n, numeric: true} }

// Int creates a numeric scalar from an int.
func Int(n int) Scalar { return Number(float64(n)) }

// IsNumber reports whether the scalar holds a number.
func (s Scalar) IsNumber() bool { return s.numeric }

// Str returns the string value ("" for numbers).
func (s Scalar) Str() string { return s.str }

// Num returns the numeric value (0 for strings).
func (s Scalar) Num() float64 { return s.num }

// IsZero reports whether the scalar is falsy: an empty string or the number 0.
func (s Scalar) IsZero() bool {
	if s.numeric {
		return s.num == 0
	}
	return s.str == ""
}

// Key returns the bucket key of the scalar. Numbers use the shortest exact decimal form.
func (s Scalar) Key() string {
	if s.numeric {
		return strconv.FormatFloat(s.num, 'f', -1, 64)
	}
	return s.str
}

func (s Scalar) String() string { return s.Key() }

// MarshalJSON encodes the scalar as a JSON string or number.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.numeric {
		return []byte(s.Key()), nil
	}
	return json.Marshal(s.str)
}

// UnmarshalJSON decodes a JSON string or number.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty scalar")
	}
	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("decode string scalar: %w", err)
		}
		*s = String(str)
	case 'n':
		*s = String("")
	case 't', 'f':
		return fmt.Errorf("boolean facet values are not supported: %s", data)
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("decode numeric scalar: %w", err)
		}
		*s = Number(n)
	}
	return nil
}

// Field is the value of one facet on a document: a scalar or a set of scalars.
// The zero Field is an empty set.
type Field struct {
	values []Scalar
	single bool
}

// Single creates a scalar field.
func Single(s Scalar) Field { return Field{values: []Scalar{s}, single: true} }

// Multi creates a set field. Duplicate values collapse, first occurrence wins.
func Multi(values ...Scalar) Field {
	out := make([]Scalar, 0, len(values))
	seen := make(map[Scalar]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return Field{values: out}
}

// Strings creates a set field of strings.
func Strings(values ...string) Field {
	scalars := make([]Scalar, len(values))
	for i, v := range values {
		scalars[i] = String(v)
	}
	return Multi(scalars...)
}

// Empty returns an empty set field.
func Empty() Field { return Field{values: []Scalar{}} }

// Values returns the scalars of the field.
func (f Field) Values() []Scalar { return f.values }

// IsSingle reports whether the field is a scalar rather than a set.
func (f Field) IsSingle() bool { return f.single }

// Len returns the number of scalars.
func (f Field) Len() int { return len(f.values) }

// First returns the first scalar, if any.
func (f Field) First() (Scalar, bool) {
	if len(f.values) == 0 {
		return Scalar{}, false
	}
	return f.values[0], true
}

// Keys returns the bucket keys of all non-falsy scalars.
func (f Field) Keys() []string {
	keys := make([]string, 0, len(f.values))
	for _, v := range f.values {
		if v.IsZero() {
			continue
		}
		keys = append(keys, v.Key())
	}
	return keys
}

// Contains reports whether the field holds exactly the given scalar.
func (f Field) Contains(s Scalar) bool {
	for _, v := range f.values {
		if v == s {
			return true
		}
	}
	return false
}

// MarshalJSON encodes a scalar field as a JSON scalar and a set as an array.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.single && len(f.values) == 1 {
		return f.values[0].MarshalJSON()
	}
	if f.values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f.values)
}

// UnmarshalJSON decodes a JSON scalar, array of scalars or null.
func (f *Field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = Empty()
		return nil
	case data[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode facet array: %w", err)
		}
		values := make([]Scalar, 0, len(raw))
		for _, item := range raw {
			if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
				continue
			}
			var s Scalar
			if err := s.UnmarshalJSON(item); err != nil {
				return err
			}
			values = append(values, s)
		}
		*f = Multi(values...)
		return nil
	default:
		var s Scalar
		if err := s.UnmarshalJSON(data); err != nil {
			return err
		}
		*f = Single(s)
		return nil
	}
}

// Document is a flattened record: facet name to field.
type Document map[string]Field

// Get returns the named field (an empty set when absent).
func (d Document) Get(name string) Field {
	if f, ok := d[name]; ok {
		return f
	}
	return Empty()
}

// ID returns the document identifier stored under "id".
func (d Document) ID() string {
	if s, ok := d.Get("id").First(); ok {
		return s.Key()
	}
	return ""
}

// Clone returns a shallow copy; fields are immutable values.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
