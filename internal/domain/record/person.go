package record

import "github.com/kailas-cloud/facetdex/internal/domain/facet"

// Person is a biographical record. Directors and cast members embedded in films use the
// same shape without characters and roles.
type Person struct {
	ID          string      `json:"id"`
	Slug        string      `json:"slug,omitempty"`
	Name        string      `json:"name,omitempty"`
	BirthYear   Year        `json:"birthYear,omitempty"`
	DeathYear   Year        `json:"deathYear,omitempty"`
	Gender      string      `json:"gender,omitempty"`
	Nationality string      `json:"nationality,omitempty"`
	Characters  []Character `json:"characters,omitempty"`
	Roles       []Role      `json:"roles,omitempty"`
}

// Lookup resolves a dot-separated path on the person. Absent or nil segments report false.
func (p *Person) Lookup(path string) (facet.Scalar, bool) {
	if p == nil {
		return facet.Scalar{}, false
	}
	head, _, nested := splitPath(path)
	if nested {
		return facet.Scalar{}, false
	}
	switch head {
	case "id":
		return facet.String(p.ID), true
	case "slug":
		return facet.String(p.Slug), true
	case "type":
		return facet.String(string(KindPerson)), true
	case "name":
		return facet.String(p.Name), true
	case "birthYear":
		return yearScalar(p.BirthYear), true
	case "deathYear":
		return yearScalar(p.DeathYear), true
	case "gender":
		return facet.String(p.Gender), true
	case "nationality":
		return facet.String(p.Nationality), true
	}
	return facet.Scalar{}, false
}
