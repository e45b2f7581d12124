// Package insights post-processes aggregation buckets for chart views: cross-facet grouping
// and one-sentence summaries.
package insights

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/gertd/go-pluralize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kailas-cloud/facetdex/internal/domain/facet"
	"github.com/kailas-cloud/facetdex/internal/engine"
)

// NoData is the summary of an empty bucket list.
const NoData = "No data!"

// GroupCount is the number of documents of a row that also match one group-by value.
type GroupCount struct {
	Key      string
	DocCount int
}

// Row is a primary bucket with its per-group counts.
type Row struct {
	engine.Bucket
	Groups []GroupCount
}

// Total returns the sum of the group counts.
func (r Row) Total() int {
	n := 0
	for _, g := range r.Groups {
		n += g.DocCount
	}
	return n
}

// MarshalJSON encodes the bucket fields with one extra field per group key.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(k string, v any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}
	if err := write("key", r.Key); err != nil {
		return nil, err
	}
	if err := write("doc_count", r.DocCount); err != nil {
		return nil, err
	}
	for _, g := range r.Groups {
		if g.Key == "key" || g.Key == "doc_count" {
			continue
		}
		if err := write(g.Key, g.DocCount); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MatchesFacetValue reports whether the document's facet holds value: set containment,
// integer-parse match, float-parse match, then exact scalar equality.
func MatchesFacetValue(doc facet.Document, facetName, value string) bool {
	return doc.Get(facetName).Matches(value)
}

// GroupedBuckets counts, for every primary bucket, the documents matching both the bucket and
// each group-by value. Rows matching no group-by value are dropped. Without a group-by facet
// the primary buckets are returned as rows without groups.
func GroupedBuckets(primaryFacet string, primary []engine.Bucket, groupByFacet string, groupBy []engine.Bucket, docs []facet.Document) []Row {
	rows := make([]Row, 0, len(primary))
	if groupByFacet == "" {
		for _, b := range primary {
			rows = append(rows, Row{Bucket: b})
		}
		return rows
	}

	for _, b := range primary {
		var matched []facet.Document
		for _, d := range docs {
			if MatchesFacetValue(d, primaryFacet, b.Key) {
				matched = append(matched, d)
			}
		}
		row := Row{Bucket: b, Groups: make([]GroupCount, 0, len(groupBy))}
		for _, g := range groupBy {
			n := 0
			for _, d := range matched {
				if MatchesFacetValue(d, groupByFacet, g.Key) {
					n++
				}
			}
			row.Groups = append(row.Groups, GroupCount{Key: g.Key, DocCount: n})
		}
		if row.Total() == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

var (
	plural  = pluralize.NewClient()
	printer = message.NewPrinter(language.English)
)

// SummaryLabel describes buckets in one sentence: the total, the number of categories and the
// highest and lowest bucket.
func SummaryLabel(buckets []engine.Bucket, categoryLabel string) string {
	if len(buckets) == 0 {
		return NoData
	}

	total := 0
	maxB, minB := buckets[0], buckets[0]
	for _, b := range buckets {
		total += b.DocCount
		if b.DocCount > maxB.DocCount {
			maxB = b
		}
		if b.DocCount < minB.DocCount {
			minB = b
		}
	}

	category := plural.Pluralize(strings.ToLower(categoryLabel), len(buckets), false)
	return printer.Sprintf(
		"There are %d total items across %d %s. Highest count is %d %s for %s, lowest is %d %s for %s.",
		total, len(buckets), category,
		maxB.DocCount, plural.Pluralize("item", maxB.DocCount, false), maxB.Key,
		minB.DocCount, plural.Pluralize("item", minB.DocCount, false), minB.Key,
	)
}

// Buckets returns the primary buckets of rows.
func Buckets(rows []Row) []engine.Bucket {
	out := make([]engine.Bucket, len(rows))
	for i, r := range rows {
		out[i] = r.Bucket
	}
	return out
}
