// Package tag maps raw film tag keys onto their hierarchy levels.
package tag

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/facetdex/internal/domain/facet"
)

//go:embed hierarchy.yaml
var defaultTable []byte

// Hierarchy maps a raw tag key to its ordered hierarchy levels.
type Hierarchy map[string][]string

// Default returns the built-in hierarchy table.
func Default() Hierarchy {
	h, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("tag: built-in hierarchy: %v", err))
	}
	return h
}

// Load reads a hierarchy table from a YAML file.
func Load(path string) (Hierarchy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tag hierarchy: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML hierarchy table.
func Parse(data []byte) (Hierarchy, error) {
	var h Hierarchy
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parse tag hierarchy: %w", err)
	}
	for key, levels := range h {
		for _, level := range levels {
			if level == "" {
				return nil, fmt.Errorf("tag %q: empty hierarchy level", key)
			}
		}
	}
	return h, nil
}

// Expand returns every non-empty prefix of the tag's hierarchy path joined with the separator,
// followed by the full path with the raw key appended. Unknown keys yield nothing.
func (h Hierarchy) Expand(key string) []string {
	levels, ok := h[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(levels)+1)
	for i := 1; i <= len(levels); i++ {
		out = append(out, facet.Join(levels[:i]...))
	}
	leaf := append(append(make([]string, 0, len(levels)+1), levels...), key)
	return append(out, facet.Join(leaf...))
}
