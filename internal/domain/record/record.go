// Package record holds the raw corpus records: films and people with their nested
// characters and roles, decoded from the static JSON collections.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/domain/facet"
)

// Kind is the record discriminator.
type Kind string

// Record kinds.
const (
	KindFilm   Kind = "Film"
	KindPerson Kind = "Person"
)

// kindBiography is the discriminator the ETL writes for people.
const kindBiography = "Biography"

// Record is a tagged union of Film and Person.
type Record struct {
	kind   Kind
	film   *Film
	person *Person
}

// FromFilm wraps a film.
func FromFilm(f *Film) Record { return Record{kind: KindFilm, film: f} }

// FromPerson wraps a person.
func FromPerson(p *Person) Record { return Record{kind: KindPerson, person: p} }

// Kind returns the record variant.
func (r Record) Kind() Kind { return r.kind }

// Film returns the film variant.
func (r Record) Film() (*Film, bool) { return r.film, r.kind == KindFilm && r.film != nil }

// Person returns the person variant.
func (r Record) Person() (*Person, bool) { return r.person, r.kind == KindPerson && r.person != nil }

// ID returns the record identifier.
func (r Record) ID() string {
	switch {
	case r.film != nil:
		return r.film.ID
	case r.person != nil:
		return r.person.ID
	}
	return ""
}

// Slug returns the record slug.
func (r Record) Slug() string {
	switch {
	case r.film != nil:
		return r.film.Slug
	case r.person != nil:
		return r.person.Slug
	}
	return ""
}

// Characters returns the characters attached to the record.
func (r Record) Characters() []Character {
	switch {
	case r.film != nil:
		return r.film.Characters
	case r.person != nil:
		return r.person.Characters
	}
	return nil
}

// Roles returns the roles attached to the record.
func (r Record) Roles() []Role {
	switch {
	case r.film != nil:
		return r.film.Roles
	case r.person != nil:
		return r.person.Roles
	}
	return nil
}

// Participations returns the roles followed by the characters of the record.
func (r Record) Participations() []Participation {
	roles := r.Roles()
	chars := r.Characters()
	out := make([]Participation, 0, len(roles)+len(chars))
	for i := range roles {
		out = append(out, &roles[i])
	}
	for i := range chars {
		out = append(out, &chars[i])
	}
	return out
}

// Lookup resolves a dot-separated path on the record.
func (r Record) Lookup(path string) (facet.Scalar, bool) {
	switch {
	case r.film != nil:
		return r.film.Lookup(path)
	case r.person != nil:
		return r.person.Lookup(path)
	}
	return facet.Scalar{}, false
}

// MarshalJSON encodes the wrapped variant.
func (r Record) MarshalJSON() ([]byte, error) {
	switch {
	case r.film != nil:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Film
		}{KindFilm, r.film})
	case r.person != nil:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Person
		}{KindPerson, r.person})
	}
	return []byte("null"), nil
}

// UnmarshalJSON dispatches on the "type" discriminator.
func (r *Record) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("decode record type: %w", err)
	}
	switch head.Type {
	case string(KindFilm):
		var f Film
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("decode film: %w", err)
		}
		*r = FromFilm(&f)
	case string(KindPerson), kindBiography:
		var p Person
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode person: %w", err)
		}
		*r = FromPerson(&p)
	default:
		return fmt.Errorf("unknown record type %q", head.Type)
	}
	return nil
}

// Year is a calendar year. The raw data stores it as a number, a numeric string or "".
type Year int

// UnmarshalJSON accepts numbers, numeric strings, "" and null.
func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	s := string(data)
	if s == "null" {
		*y = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode year: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*y = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decode year %q: %w", s, err)
	}
	*y = Year(int(f))
	return nil
}

func yearScalar(y Year) facet.Scalar { return facet.Int(int(y)) }

// splitPath cuts the first segment off a dot-separated path.
func splitPath(path string) (head, rest string, nested bool) {
	return strings.Cut(path, ".")
}

// leaf returns s as a present string scalar when path has no further segments.
func leaf(s string, nested bool) (facet.Scalar, bool) {
	if nested {
		return facet.Scalar{}, false
	}
	return facet.String(s), true
}
