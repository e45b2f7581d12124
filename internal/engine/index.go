// Package engine implements the in-memory faceted index: posting lists per facet value,
// token-containment text search, filters, sorting, paging and aggregations.
package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/facet"
	"github.com/kailas-cloud/facetdex/internal/flatten"
)

// Index is an immutable faceted index over one data source.
type Index struct {
	cfg      facet.Config
	docs     []facet.Document
	all      *roaring.Bitmap
	postings map[string]map[string]*roaring.Bitmap // facet -> bucket key -> doc ids
	text     []string                              // folded, lower-cased searchable text per doc
	orders   map[string][]int                      // sort key -> rank per doc
}

// Build indexes documents under cfg. Documents keep their insertion order as identifiers.
func Build(docs []facet.Document, cfg facet.Config) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	ix := &Index{
		cfg:      cfg.Clone(),
		docs:     docs,
		all:      roaring.New(),
		postings: make(map[string]map[string]*roaring.Bitmap, len(cfg.Aggregations)),
		text:     make([]string, len(docs)),
		orders:   make(map[string][]int, len(cfg.Sortings)),
	}
	for name := range cfg.Aggregations {
		ix.postings[name] = make(map[string]*roaring.Bitmap)
	}

	for i, doc := range docs {
		id := uint32(i)
		ix.all.Add(id)
		for name, values := range ix.postings {
			for _, key := range doc.Get(name).Keys() {
				bm, ok := values[key]
				if !ok {
					bm = roaring.New()
					values[key] = bm
				}
				bm.Add(id)
			}
		}
		ix.text[i] = searchableText(doc, cfg.SearchableFields)
	}

	col := collate.New(language.English, collate.Loose)
	for key, s := range cfg.Sortings {
		ix.orders[key] = rank(docs, s, col)
	}
	return ix, nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.docs) }

// Config returns the configuration the index was built with.
func (ix *Index) Config() facet.Config { return ix.cfg.Clone() }

// Search runs a query.
func (ix *Index) Search(req Request) (*Result, error) {
	if req.Sort != "" {
		if _, ok := ix.orders[req.Sort]; !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSort, req.Sort)
		}
	}

	filters := make(map[string]*roaring.Bitmap, len(req.Filters))
	selected := make(map[string]map[string]bool, len(req.Filters))
	for name, values := range req.Filters {
		agg, ok := ix.cfg.Aggregations[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFacet, name)
		}
		if len(values) == 0 {
			continue
		}
		filters[name] = ix.filter(name, values, agg.IsDisjunctive())
		selected[name] = make(map[string]bool, len(values))
		for _, v := range values {
			selected[name][ix.bucketKey(name, v)] = true
		}
	}

	textMatch := ix.matchText(req.Query)
	matched := textMatch.Clone()
	for _, bm := range filters {
		matched.And(bm)
	}

	page, perPage := req.Page, req.PerPage
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	ids := ix.order(matched, req.Sort)
	items := make([]facet.Document, 0, min(perPage, len(ids)))
	// Compare page numbers before multiplying so huge pages cannot overflow the offset.
	start := len(ids)
	if n := len(ids); n > 0 && page-1 <= (n-1)/perPage {
		start = (page - 1) * perPage
	}
	for i := start; i < len(ids) && len(items) < perPage; i++ {
		items = append(items, ix.docs[ids[i]])
	}

	aggs := make(map[string]Aggregation, len(ix.cfg.Aggregations))
	for name, agg := range ix.cfg.Aggregations {
		base := textMatch.Clone()
		for other, bm := range filters {
			if other != name {
				base.And(bm)
			}
		}
		aggs[name] = Aggregation{
			Name:    name,
			Title:   agg.Title,
			Buckets: ix.buckets(name, agg, base, selected[name]),
		}
	}

	return &Result{
		Pagination:   Pagination{Page: page, PerPage: perPage, Total: len(ids)},
		Items:        items,
		Aggregations: aggs,
	}, nil
}

// bucketKey maps a filter value onto a stored bucket key, trying the value verbatim first.
func (ix *Index) bucketKey(name, value string) string {
	if _, ok := ix.postings[name][value]; ok {
		return value
	}
	return facet.CanonicalKey(value)
}

func (ix *Index) filter(name string, values []string, disjunctive bool) *roaring.Bitmap {
	var out *roaring.Bitmap
	for _, v := range values {
		bm, ok := ix.postings[name][ix.bucketKey(name, v)]
		if !ok {
			bm = roaring.New()
		}
		switch {
		case out == nil:
			out = bm.Clone()
		case disjunctive:
			out.Or(bm)
		default:
			out.And(bm)
		}
	}
	return out
}

func (ix *Index) matchText(query string) *roaring.Bitmap {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return ix.all.Clone()
	}
	out := roaring.New()
	for i, text := range ix.text {
		if containsAll(text, tokens) {
			out.Add(uint32(i))
		}
	}
	return out
}

func (ix *Index) order(matched *roaring.Bitmap, sortKey string) []uint32 {
	ids := matched.ToArray()
	if sortKey == "" {
		return ids
	}
	ranks := ix.orders[sortKey]
	sort.Slice(ids, func(a, b int) bool { return ranks[ids[a]] < ranks[ids[b]] })
	return ids
}

func (ix *Index) buckets(name string, agg facet.Aggregation, base *roaring.Bitmap, selected map[string]bool) []Bucket {
	values := ix.postings[name]
	out := make([]Bucket, 0, len(values))
	for key, bm := range values {
		count := int(base.AndCardinality(bm))
		if count == 0 && agg.HideZeroDocCount && !selected[key] {
			continue
		}
		out = append(out, Bucket{Key: key, DocCount: count, Selected: selected[key]})
	}

	if agg.Sort == facet.SortByCount {
		sort.Slice(out, func(i, j int) bool {
			if out[i].DocCount != out[j].DocCount {
				return out[i].DocCount > out[j].DocCount
			}
			return out[i].Key < out[j].Key
		})
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	}

	if agg.Size > 0 && len(out) > agg.Size {
		out = out[:agg.Size]
	}
	return out
}

// Normalize folds diacritics and case so text and queries compare on the same form.
func Normalize(s string) string {
	return strings.ToLower(flatten.Fold(s))
}

func queryTokens(query string) []string {
	fields := strings.Fields(query)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if tok := Normalize(f); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func containsAll(text string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(text, tok) {
			return false
		}
	}
	return true
}

func searchableText(doc facet.Document, fields facet.FieldList) string {
	var b strings.Builder
	for _, name := range fields {
		for _, v := range doc.Get(name).Values() {
			if v.IsZero() {
				continue
			}
			b.WriteString(v.Key())
			b.WriteByte(' ')
		}
	}
	return Normalize(b.String())
}

// rank orders every document under one sorting. Equal values keep insertion order in both
// directions; documents without a value go last.
func rank(docs []facet.Document, s facet.Sorting, col *collate.Collator) []int {
	idx := make([]int, len(docs))
	for i := range idx {
		idx[i] = i
	}
	keys := make([]facet.Scalar, len(docs))
	present := make([]bool, len(docs))
	for i, doc := range docs {
		keys[i], present[i] = doc.Get(s.Field).First()
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if present[ia] != present[ib] {
			return present[ia]
		}
		if !present[ia] {
			return false
		}
		c := compare(keys[ia], keys[ib], col)
		if s.Order == facet.Desc {
			return c > 0
		}
		return c < 0
	})

	ranks := make([]int, len(docs))
	for r, i := range idx {
		ranks[i] = r
	}
	return ranks
}

func compare(a, b facet.Scalar, col *collate.Collator) int {
	switch {
	case a.IsNumber() && b.IsNumber():
		switch {
		case a.Num() < b.Num():
			return -1
		case a.Num() > b.Num():
			return 1
		}
		return 0
	case a.IsNumber():
		return -1
	case b.IsNumber():
		return 1
	}
	return col.CompareString(a.Str(), b.Str())
}
