package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/facetdex/internal/domain/facet"
)

// Participation is a person's part in a film. Character (owned by a film) and Role (attached
// to either side) describe the same relationship from opposite ownership directions.
type Participation interface {
	// Lookup resolves the participation's own fields and the "film." / "person." sub-paths.
	Lookup(path string) (facet.Scalar, bool)
	// Label returns the role label ("Leading actor", "Director", ...).
	Label() string
	// FilmOf returns the referenced film, if embedded.
	FilmOf() *Film
	// PersonOf returns the referenced person, if embedded.
	PersonOf() *Person
}

// FilmRef is a weak reference to a film: an identifier or an embedded copy.
type FilmRef struct {
	ID   string
	Film *Film
}

// IsZero reports whether the reference is empty.
func (r FilmRef) IsZero() bool { return r.ID == "" && r.Film == nil }

// MarshalJSON encodes the embedded film, or the identifier alone.
func (r FilmRef) MarshalJSON() ([]byte, error) {
	if r.Film != nil {
		return json.Marshal(r.Film)
	}
	if r.ID != "" {
		return json.Marshal(r.ID)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts an identifier string, an embedded film object or null.
func (r *FilmRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*r = FilmRef{}
	case data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("decode film reference: %w", err)
		}
		*r = FilmRef{ID: id}
	default:
		var f Film
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("decode film reference: %w", err)
		}
		*r = FilmRef{ID: f.ID, Film: &f}
	}
	return nil
}

// PersonRef is a weak reference to a person: an identifier or an embedded copy.
type PersonRef struct {
	ID     string
	Person *Person
}

// IsZero reports whether the reference is empty.
func (r PersonRef) IsZero() bool { return r.ID == "" && r.Person == nil }

// MarshalJSON encodes the embedded person, or the identifier alone.
func (r PersonRef) MarshalJSON() ([]byte, error) {
	if r.Person != nil {
		return json.Marshal(r.Person)
	}
	if r.ID != "" {
		return json.Marshal(r.ID)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts an identifier string, an embedded person object or null.
func (r *PersonRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*r = PersonRef{}
	case data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("decode person reference: %w", err)
		}
		*r = PersonRef{ID: id}
	default:
		var p Person
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode person reference: %w", err)
		}
		*r = PersonRef{ID: p.ID, Person: &p}
	}
	return nil
}

// Character is a role instance inside a film with the character's demographic attributes.
type Character struct {
	ID               string    `json:"id,omitempty"`
	Age              string    `json:"age,omitempty"`
	Gender           string    `json:"gender,omitempty"`
	Sexuality        string    `json:"sexuality,omitempty"`
	Origin           string    `json:"origin,omitempty"`
	Class            string    `json:"class,omitempty"`
	Profession       string    `json:"profession,omitempty"`
	Ability          string    `json:"ability,omitempty"`
	AssistedMobility string    `json:"assistedMobility,omitempty"`
	Role             string    `json:"role,omitempty"`
	Film             FilmRef   `json:"film,omitzero"`
	Person           PersonRef `json:"person,omitzero"`
}

var _ Participation = (*Character)(nil)

// Lookup resolves a character attribute or a "film." / "person." sub-path.
func (c *Character) Lookup(path string) (facet.Scalar, bool) {
	head, rest, nested := splitPath(path)
	switch head {
	case "film":
		return lookupFilmRef(c.Film, rest, nested)
	case "person":
		return lookupPersonRef(c.Person, rest, nested)
	}
	var v string
	switch head {
	case "id":
		v = c.ID
	case "age":
		v = c.Age
	case "gender":
		v = c.Gender
	case "sexuality":
		v = c.Sexuality
	case "origin":
		v = c.Origin
	case "class":
		v = c.Class
	case "profession":
		v = c.Profession
	case "ability":
		v = c.Ability
	case "assistedMobility":
		v = c.AssistedMobility
	case "role":
		v = c.Role
	default:
		return facet.Scalar{}, false
	}
	return leaf(v, nested)
}

// Label returns the role label of the character.
func (c *Character) Label() string { return c.Role }

// FilmOf returns the embedded film.
func (c *Character) FilmOf() *Film { return c.Film.Film }

// PersonOf returns the embedded person.
func (c *Character) PersonOf() *Person { return c.Person.Person }

// Role links a person to a film with a role label.
type Role struct {
	Role   string    `json:"role,omitempty"`
	Film   FilmRef   `json:"film,omitzero"`
	Person PersonRef `json:"person,omitzero"`
}

var _ Participation = (*Role)(nil)

// Lookup resolves the role label or a "film." / "person." sub-path.
func (r *Role) Lookup(path string) (facet.Scalar, bool) {
	head, rest, nested := splitPath(path)
	switch head {
	case "role":
		return leaf(r.Role, nested)
	case "film":
		return lookupFilmRef(r.Film, rest, nested)
	case "person":
		return lookupPersonRef(r.Person, rest, nested)
	}
	return facet.Scalar{}, false
}

// Label returns the role label.
func (r *Role) Label() string { return r.Role }

// FilmOf returns the embedded film.
func (r *Role) FilmOf() *Film { return r.Film.Film }

// PersonOf returns the embedded person.
func (r *Role) PersonOf() *Person { return r.Person.Person }

func lookupFilmRef(ref FilmRef, rest string, nested bool) (facet.Scalar, bool) {
	if !nested {
		if ref.ID == "" {
			return facet.Scalar{}, false
		}
		return facet.String(ref.ID), true
	}
	return ref.Film.Lookup(rest)
}

func lookupPersonRef(ref PersonRef, rest string, nested bool) (facet.Scalar, bool) {
	if !nested {
		if ref.ID == "" {
			return facet.Scalar{}, false
		}
		return facet.String(ref.ID), true
	}
	return ref.Person.Lookup(rest)
}
