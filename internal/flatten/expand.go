package flatten

import (
	"github.com/kailas-cloud/facetdex/internal/domain/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/record"
)

// Expand fills the combined facets of doc. For every facet F combining with {K, G} the pairs
// F x G and G x F are computed on the record and their union is stored under both F:::K and K:::F.
func Expand(cfg facet.Config, rec record.Record, doc facet.Document) {
	for _, name := range cfg.FacetNames() {
		for _, cw := range cfg.Aggregations[name].CombineWith {
			forward, reverse := facet.CombinedNames(name, cw)
			pairs := RelatedFacetCombinations(rec, name, cw.Field)
			mirror := RelatedFacetCombinations(rec, cw.Field, name)
			union := facet.Multi(append(append([]facet.Scalar(nil), pairs.Values()...), mirror.Values()...)...)
			doc[forward] = union
			doc[reverse] = union
		}
	}
}
