package facet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SortOrder is the direction of a document sorting.
type SortOrder string

// Sort orders.
const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// BucketSort orders the buckets of an aggregation.
type BucketSort string

// Bucket orderings.
const (
	// SortByKey orders buckets by key, ascending.
	SortByKey BucketSort = "key"
	// SortByCount orders buckets by document count, descending (ties by key).
	SortByCount BucketSort = "count"
)

// Conjunction decides how several selected values of one facet combine.
type Conjunction string

// Conjunction policies.
const (
	// And requires a document to match every selected value.
	And Conjunction = "and"
	// Or requires a document to match at least one selected value.
	Or Conjunction = "or"
)

// UnmarshalJSON accepts "and"/"or" as well as the boolean form (true = and, false = or).
func (c *Conjunction) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*c = And
		return nil
	case "false":
		*c = Or
		return nil
	case "null":
		*c = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode conjunction: %w", err)
	}
	*c = Conjunction(strings.ToLower(s))
	return nil
}

// Combination names a second facet to cross-tabulate with: Key is the other facet's name in
// the synthetic facet name, Field is the path resolved on each participation.
type Combination struct {
	Key   string `json:"key" yaml:"key"`
	Field string `json:"field" yaml:"field"`
}

// Aggregation describes one facet.
type Aggregation struct {
	Title            string        `json:"title" yaml:"title"`
	Size             int           `json:"size" yaml:"size"`
	Sort             BucketSort    `json:"sort" yaml:"sort"`
	HideZeroDocCount bool          `json:"hide_zero_doc_count" yaml:"hide_zero_doc_count"`
	Conjunction      Conjunction   `json:"conjunction,omitempty" yaml:"conjunction"`
	CombineWith      []Combination `json:"combineWith,omitempty" yaml:"combine_with"`
}

// IsDisjunctive reports whether selected values of this facet combine with OR.
func (a Aggregation) IsDisjunctive() bool { return a.Conjunction == Or }

// Sorting maps a sort key to a document field and direction.
type Sorting struct {
	Field string    `json:"field" yaml:"field"`
	Order SortOrder `json:"order" yaml:"order"`
}

// FieldList is a list of field names. Its JSON form may nest arrays, which are flattened.
type FieldList []string

// UnmarshalJSON flattens nested arrays of field names.
func (l *FieldList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode field list: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '[' {
			var nested FieldList
			if err := nested.UnmarshalJSON(item); err != nil {
				return err
			}
			out = append(out, nested...)
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return fmt.Errorf("decode field name: %w", err)
		}
		out = append(out, s)
	}
	*l = out
	return nil
}

// Config is the declarative facet configuration of one data source.
type Config struct {
	Aggregations     map[string]Aggregation `json:"aggregations" yaml:"aggregations"`
	SearchableFields FieldList              `json:"searchableFields" yaml:"searchable_fields"`
	Sortings         map[string]Sorting     `json:"sortings" yaml:"sortings"`
}

// Validate checks the configuration for correctness.
func (c Config) Validate() error {
	for name, agg := range c.Aggregations {
		if name == "" {
			return fmt.Errorf("aggregation name is required")
		}
		if agg.Size < 0 {
			return fmt.Errorf("aggregation %q: size must not be negative", name)
		}
		switch agg.Sort {
		case "", SortByKey, SortByCount:
		default:
			return fmt.Errorf("aggregation %q: sort must be %q or %q, got %q", name, SortByKey, SortByCount, agg.Sort)
		}
		switch agg.Conjunction {
		case "", And, Or:
		default:
			return fmt.Errorf("aggregation %q: conjunction must be %q or %q, got %q", name, And, Or, agg.Conjunction)
		}
		for _, cw := range agg.CombineWith {
			if cw.Key == "" || cw.Field == "" {
				return fmt.Errorf("aggregation %q: combineWith requires key and field", name)
			}
		}
	}
	for key, s := range c.Sortings {
		if s.Field == "" {
			return fmt.Errorf("sorting %q: field is required", key)
		}
		switch s.Order {
		case Asc, Desc:
		default:
			return fmt.Errorf("sorting %q: order must be %q or %q, got %q", key, Asc, Desc, s.Order)
		}
	}
	return nil
}

// FacetNames returns the aggregation names in lexical order.
func (c Config) FacetNames() []string {
	names := make([]string, 0, len(c.Aggregations))
	for name := range c.Aggregations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CombinedNames returns the forward and reverse synthetic facet names of a combination.
func CombinedNames(facetName string, cw Combination) (forward, reverse string) {
	return Join(facetName, cw.Key), Join(cw.Key, facetName)
}

// WithCombinations returns a copy of the configuration with every combined facet registered
// under both its forward and reverse name. Registered facets inherit the bucket settings of the
// declaring facet. Applying it twice is harmless.
func (c Config) WithCombinations() Config {
	out := c.Clone()
	for _, name := range c.FacetNames() {
		agg := c.Aggregations[name]
		for _, cw := range agg.CombineWith {
			forward, reverse := CombinedNames(name, cw)
			synthetic := Aggregation{
				Title:            fmt.Sprintf("%s and %s", agg.Title, cw.Key),
				Size:             agg.Size,
				Sort:             agg.Sort,
				HideZeroDocCount: agg.HideZeroDocCount,
			}
			for _, n := range []string{forward, reverse} {
				if _, exists := out.Aggregations[n]; !exists {
					out.Aggregations[n] = synthetic
				}
			}
		}
	}
	return out
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	out := Config{
		Aggregations:     make(map[string]Aggregation, len(c.Aggregations)),
		SearchableFields: append(FieldList(nil), c.SearchableFields...),
		Sortings:         make(map[string]Sorting, len(c.Sortings)),
	}
	for k, v := range c.Aggregations {
		v.CombineWith = append([]Combination(nil), v.CombineWith...)
		out.Aggregations[k] = v
	}
	for k, v := range c.Sortings {
		out.Sortings[k] = v
	}
	return out
}
