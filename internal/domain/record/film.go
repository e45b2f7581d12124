package record

import "github.com/kailas-cloud/facetdex/internal/domain/facet"

// Title holds the native and English titles of a film.
type Title struct {
	Native  string `json:"native,omitempty"`
	English string `json:"english,omitempty"`
}

// Release describes the first release of a film.
type Release struct {
	Type string `json:"type,omitempty"`
	Date string `json:"date,omitempty"`
	Year Year   `json:"year,omitempty"`
}

// Production is one producing country with its share.
type Production struct {
	Country string `json:"country,omitempty"`
	Share   string `json:"share,omitempty"`
}

// Synopsis holds the native and English synopses of a film.
type Synopsis struct {
	Native  string `json:"native,omitempty"`
	English string `json:"english,omitempty"`
}

// Media links a film's trailer and poster.
type Media struct {
	TrailerURL string `json:"trailerUrl,omitempty"`
	PosterURL  string `json:"posterUrl,omitempty"`
}

// Film is a film record.
type Film struct {
	ID         string       `json:"id"`
	Slug       string       `json:"slug"`
	Title      *Title       `json:"title,omitempty"`
	FilmType   string       `json:"filmType,omitempty"`
	Genre      []string     `json:"genre,omitempty"`
	Release    *Release     `json:"release,omitempty"`
	Production []Production `json:"production,omitempty"`
	Characters []Character  `json:"characters,omitempty"`
	Directors  []Person     `json:"directors,omitempty"`
	Roles      []Role       `json:"roles,omitempty"`
	Tags       []string     `json:"tags,omitempty"`
	Synopsis   *Synopsis    `json:"synopsis,omitempty"`
	Media      *Media       `json:"media,omitempty"`
}

// Lookup resolves a dot-separated path on the film. Absent or nil segments report false.
func (f *Film) Lookup(path string) (facet.Scalar, bool) {
	if f == nil {
		return facet.Scalar{}, false
	}
	head, rest, nested := splitPath(path)
	switch head {
	case "id":
		return leaf(f.ID, nested)
	case "slug":
		return leaf(f.Slug, nested)
	case "type":
		return leaf(string(KindFilm), nested)
	case "filmType":
		return leaf(f.FilmType, nested)
	case "title":
		if f.Title == nil || !nested {
			return facet.Scalar{}, false
		}
		switch rest {
		case "native":
			return facet.String(f.Title.Native), true
		case "english":
			return facet.String(f.Title.English), true
		}
	case "release":
		if f.Release == nil || !nested {
			return facet.Scalar{}, false
		}
		switch rest {
		case "type":
			return facet.String(f.Release.Type), true
		case "date":
			return facet.String(f.Release.Date), true
		case "year":
			return yearScalar(f.Release.Year), true
		}
	case "synopsis":
		if f.Synopsis == nil || !nested {
			return facet.Scalar{}, false
		}
		switch rest {
		case "native":
			return facet.String(f.Synopsis.Native), true
		case "english":
			return facet.String(f.Synopsis.English), true
		}
	case "media":
		if f.Media == nil || !nested {
			return facet.Scalar{}, false
		}
		switch rest {
		case "trailerUrl":
			return facet.String(f.Media.TrailerURL), true
		case "posterUrl":
			return facet.String(f.Media.PosterURL), true
		}
	}
	return facet.Scalar{}, false
}
