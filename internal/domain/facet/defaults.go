package facet

// Data source names served by default.
const (
	SourceCorpus      = "corpus"
	SourceFilms       = "films"
	SourceBiographies = "biographies"
)

// DefaultBucketSize is the bucket size of the default film facets.
const DefaultBucketSize = 1000

func keyFacet(title string, size int) Aggregation {
	return Aggregation{Title: title, Size: size, Sort: SortByKey, HideZeroDocCount: true, Conjunction: And}
}

func filmAggregations() map[string]Aggregation {
	return map[string]Aggregation{
		"type":                   keyFacet("Type", DefaultBucketSize),
		"filmType":               keyFacet("Film type", DefaultBucketSize),
		"genre":                  keyFacet("Genre", DefaultBucketSize),
		"releaseType":            keyFacet("Release type", DefaultBucketSize),
		"releaseYear":            keyFacet("Release year", DefaultBucketSize),
		"productionCountryShare": keyFacet("Production country", DefaultBucketSize),
		"tags":                   keyFacet("Tags", DefaultBucketSize),
		"directorGender":         keyFacet("Director gender", DefaultBucketSize),
		"directorNationality":    keyFacet("Director nationality", DefaultBucketSize),
		"characterAge":           keyFacet("Character age", DefaultBucketSize),
		"characterGender":        keyFacet("Character gender", DefaultBucketSize),
		"characterSexuality":     keyFacet("Character sexuality", DefaultBucketSize),
		"characterOrigin":        keyFacet("Character origin", DefaultBucketSize),
		"characterClass":         keyFacet("Character class", DefaultBucketSize),
		"characterProfession":    keyFacet("Character profession", DefaultBucketSize),
		"characterAbility":       keyFacet("Character ability", DefaultBucketSize),
		"assistedMobility":       keyFacet("Assisted mobility", DefaultBucketSize),
	}
}

func personAggregations() map[string]Aggregation {
	role := keyFacet("Role", DefaultBucketSize)
	role.CombineWith = []Combination{{Key: "gender", Field: "gender"}}
	return map[string]Aggregation{
		"role":        role,
		"gender":      keyFacet("Gender", DefaultBucketSize),
		"nationality": keyFacet("Nationality", DefaultBucketSize),
		"birthYear":   keyFacet("Birth year", DefaultBucketSize),
	}
}

// DefaultSearchConfig returns the facet configuration of every default data source.
func DefaultSearchConfig() map[string]Config {
	films := Config{
		Aggregations:     filmAggregations(),
		SearchableFields: FieldList{"title", "synopsis", "text"},
		Sortings: map[string]Sorting{
			"title_asc":        {Field: "title", Order: Asc},
			"title_desc":       {Field: "title", Order: Desc},
			"releaseYear_asc":  {Field: "releaseYear", Order: Asc},
			"releaseYear_desc": {Field: "releaseYear", Order: Desc},
		},
	}
	for name, agg := range personAggregations() {
		if name == "birthYear" {
			continue
		}
		films.Aggregations[name] = agg
	}

	biographies := Config{
		Aggregations:     personAggregations(),
		SearchableFields: FieldList{"title", "text"},
		Sortings: map[string]Sorting{
			"title_asc":  {Field: "title", Order: Asc},
			"title_desc": {Field: "title", Order: Desc},
		},
	}

	corpus := Config{
		Aggregations:     filmAggregations(),
		SearchableFields: FieldList{"title", "synopsis", "text"},
		Sortings:         films.Sortings,
	}
	for name, agg := range personAggregations() {
		corpus.Aggregations[name] = agg
	}
	corpus = corpus.Clone()

	return map[string]Config{
		SourceFilms:       films,
		SourceBiographies: biographies,
		SourceCorpus:      corpus,
	}
}
