// Package flatten reduces raw corpus records to facet documents ready for indexing.
package flatten

import (
	"strings"

	"github.com/kailas-cloud/facetdex/internal/domain/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/record"
	"github.com/kailas-cloud/facetdex/internal/domain/tag"
)

// Flattener turns records into facet documents.
type Flattener struct {
	tags tag.Hierarchy
}

// New creates a flattener resolving film tags through the given hierarchy table.
func New(tags tag.Hierarchy) *Flattener {
	if tags == nil {
		tags = tag.Hierarchy{}
	}
	return &Flattener{tags: tags}
}

type resolver func(f *Flattener, rec record.Record) facet.Field

func fieldOf(path string) resolver {
	return func(_ *Flattener, rec record.Record) facet.Field { return Field(rec, path) }
}

func characterOf(attr string) resolver {
	return func(_ *Flattener, rec record.Record) facet.Field { return CharacterField(rec, attr) }
}

func directorOf(attr string) resolver {
	return func(_ *Flattener, rec record.Record) facet.Field { return DirectorField(rec, attr) }
}

var resolvers = map[string]resolver{
	"title":                  func(_ *Flattener, rec record.Record) facet.Field { return Title(rec) },
	"synopsis":               func(_ *Flattener, rec record.Record) facet.Field { return Synopsis(rec) },
	"text":                   func(_ *Flattener, rec record.Record) facet.Field { return Text(rec) },
	"tags":                   func(f *Flattener, rec record.Record) facet.Field { return f.Tags(rec) },
	"role":                   func(_ *Flattener, rec record.Record) facet.Field { return Role(rec) },
	"genre":                  func(_ *Flattener, rec record.Record) facet.Field { return Genre(rec) },
	"productionCountryShare": func(_ *Flattener, rec record.Record) facet.Field { return Production(rec) },
	"type":                   func(_ *Flattener, rec record.Record) facet.Field { return facet.Single(facet.String(string(rec.Kind()))) },
	"filmType":               fieldOf("filmType"),
	"releaseType":            fieldOf("release.type"),
	"releaseYear":            fieldOf("release.year"),
	"gender":                 fieldOf("gender"),
	"nationality":            fieldOf("nationality"),
	"birthYear":              fieldOf("birthYear"),
	"directorGender":         directorOf("gender"),
	"directorNationality":    directorOf("nationality"),
	"characterAge":           characterOf("age"),
	"characterGender":        characterOf("gender"),
	"characterSexuality":     characterOf("sexuality"),
	"characterOrigin":        characterOf("origin"),
	"characterClass":         characterOf("class"),
	"characterProfession":    characterOf("profession"),
	"characterAbility":       characterOf("ability"),
	"assistedMobility":       characterOf("assistedMobility"),
}

// Flatten builds the facet document of one record. Every facet, searchable field and sort field
// of cfg is present on the result; combined facets start empty and are filled by Expand.
func (f *Flattener) Flatten(rec record.Record, cfg facet.Config) facet.Document {
	doc := facet.Document{
		"id":       facet.Single(facet.String(rec.ID())),
		"slug":     facet.Single(facet.String(rec.Slug())),
		"type":     facet.Single(facet.String(string(rec.Kind()))),
		"title":    Title(rec),
		"synopsis": Synopsis(rec),
		"text":     Text(rec),
	}
	names := cfg.FacetNames()
	names = append(names, cfg.SearchableFields...)
	for _, s := range cfg.Sortings {
		names = append(names, s.Field)
	}
	for _, name := range names {
		if _, done := doc[name]; done {
			continue
		}
		doc[name] = f.resolve(rec, name)
	}
	return doc
}

// All flattens and expands every record.
func (f *Flattener) All(recs []record.Record, cfg facet.Config) []facet.Document {
	docs := make([]facet.Document, 0, len(recs))
	for _, rec := range recs {
		doc := f.Flatten(rec, cfg)
		Expand(cfg, rec, doc)
		docs = append(docs, doc)
	}
	return docs
}

func (f *Flattener) resolve(rec record.Record, name string) facet.Field {
	if strings.Contains(name, facet.Separator) {
		return facet.Empty()
	}
	if r, ok := resolvers[name]; ok {
		return r(f, rec)
	}
	return Field(rec, name)
}

// Tags expands the film's tag keys through the hierarchy table. People have no tags.
func (f *Flattener) Tags(rec record.Record) facet.Field {
	film, ok := rec.Film()
	if !ok {
		return facet.Empty()
	}
	var out []string
	for _, key := range film.Tags {
		out = append(out, f.tags.Expand(key)...)
	}
	return facet.Strings(out...)
}

// Title returns the non-empty native and English titles of a film, or a person's name.
func Title(rec record.Record) facet.Field {
	if p, ok := rec.Person(); ok {
		return facet.Single(facet.String(p.Name))
	}
	film, ok := rec.Film()
	if !ok || film.Title == nil {
		return facet.Empty()
	}
	return facet.Strings(nonEmpty(film.Title.Native, film.Title.English)...)
}

// Synopsis returns the non-empty native and English synopses of a film. People get an empty
// scalar, marking the facet as not applicable.
func Synopsis(rec record.Record) facet.Field {
	if _, ok := rec.Person(); ok {
		return facet.Single(facet.String(""))
	}
	film, ok := rec.Film()
	if !ok || film.Synopsis == nil {
		return facet.Empty()
	}
	return facet.Strings(nonEmpty(film.Synopsis.Native, film.Synopsis.English)...)
}

// Text tokenizes the synopsis of a film or the name of a person for accent-insensitive search.
func Text(rec record.Record) facet.Field {
	var sources []string
	if p, ok := rec.Person(); ok {
		sources = []string{p.Name}
	} else if film, ok := rec.Film(); ok && film.Synopsis != nil {
		sources = []string{film.Synopsis.Native, film.Synopsis.English}
	}
	var tokens []string
	for _, s := range sources {
		tokens = append(tokens, Tokenize(s)...)
	}
	return facet.Strings(tokens...)
}

// NestedField resolves a dot-separated path on the record. It reports false as soon as a
// segment is missing, nil or unknown.
func NestedField(rec record.Record, path string) (facet.Scalar, bool) {
	return rec.Lookup(path)
}

// Field collects the non-falsy values of path from the record itself and from the film and
// person of every role and character.
func Field(rec record.Record, path string) facet.Field {
	var values []facet.Scalar
	add := func(v facet.Scalar, ok bool) {
		if ok && !v.IsZero() {
			values = append(values, v)
		}
	}
	add(rec.Lookup(path))
	for _, p := range rec.Participations() {
		add(p.Lookup("person." + path))
		add(p.Lookup("film." + path))
	}
	return facet.Multi(values...)
}

// CharacterField collects an attribute of every character attached to the record.
func CharacterField(rec record.Record, attr string) facet.Field {
	chars := rec.Characters()
	values := make([]facet.Scalar, 0, len(chars))
	for i := range chars {
		if v, ok := chars[i].Lookup(attr); ok && !v.IsZero() {
			values = append(values, v)
		}
	}
	return facet.Multi(values...)
}

// DirectorField collects an attribute of every director of a film.
func DirectorField(rec record.Record, attr string) facet.Field {
	film, ok := rec.Film()
	if !ok {
		return facet.Empty()
	}
	values := make([]facet.Scalar, 0, len(film.Directors))
	for i := range film.Directors {
		if v, ok := film.Directors[i].Lookup(attr); ok && !v.IsZero() {
			values = append(values, v)
		}
	}
	return facet.Multi(values...)
}

// Genre returns the genres of a film, or the genres of every film a person appears in.
func Genre(rec record.Record) facet.Field {
	var genres []string
	for _, film := range films(rec) {
		genres = append(genres, film.Genre...)
	}
	return facet.Strings(nonEmpty(genres...)...)
}

// Production expands each production entry into the bare country and country:::share. For
// people the films of every role and character are walked.
func Production(rec record.Record) facet.Field {
	var out []string
	for _, film := range films(rec) {
		for _, p := range film.Production {
			if p.Country == "" {
				continue
			}
			out = append(out, p.Country)
			if p.Share != "" {
				out = append(out, facet.Join(p.Country, p.Share))
			}
		}
	}
	return facet.Strings(out...)
}

// Role returns the role labels of the record's roles, then of its characters.
func Role(rec record.Record) facet.Field {
	var labels []string
	for _, p := range rec.Participations() {
		labels = append(labels, p.Label())
	}
	return facet.Strings(nonEmpty(labels...)...)
}

// RelatedFacetCombinations pairs the values of two facets per role and character as
// "v1:::v2". Each facet resolves on the participation, then on its person, then on the record.
func RelatedFacetCombinations(rec record.Record, facet1, facet2 string) facet.Field {
	var out []string
	for _, p := range rec.Participations() {
		v1, ok1 := participationValue(rec, p, facet1)
		v2, ok2 := participationValue(rec, p, facet2)
		if ok1 && ok2 {
			out = append(out, facet.Join(v1.Key(), v2.Key()))
		}
	}
	return facet.Strings(out...)
}

func participationValue(rec record.Record, p record.Participation, path string) (facet.Scalar, bool) {
	for _, lookup := range []func(string) (facet.Scalar, bool){
		p.Lookup,
		func(path string) (facet.Scalar, bool) { return p.Lookup("person." + path) },
		rec.Lookup,
	} {
		if v, ok := lookup(path); ok && !v.IsZero() {
			return v, true
		}
	}
	return facet.Scalar{}, false
}

// films returns the film itself, or the embedded films of a person's roles and characters.
func films(rec record.Record) []*record.Film {
	if film, ok := rec.Film(); ok {
		return []*record.Film{film}
	}
	var out []*record.Film
	for _, p := range rec.Participations() {
		if film := p.FilmOf(); film != nil {
			out = append(out, film)
		}
	}
	return out
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
