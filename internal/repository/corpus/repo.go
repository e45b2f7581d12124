// Package corpus reads the static raw record corpus: one JSON array per collection and one JSON
// object per record.
package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/record"
)

// Repo implements the raw record store over a filesystem rooted at the data directory.
type Repo struct {
	fsys fs.FS
}

// New creates a corpus repository.
func New(fsys fs.FS) *Repo {
	return &Repo{fsys: fsys}
}

// Raw returns the bytes of <name>.json. name may contain one "/" (collection/slug).
func (r *Repo) Raw(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := filePath(name)
	if err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(r.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewFetchError(name, domain.ErrNotFound)
		}
		return nil, domain.NewFetchError(name, err)
	}
	return data, nil
}

// Collection decodes the records of a collection file.
func (r *Repo) Collection(ctx context.Context, name string) ([]record.Record, error) {
	data, err := r.Raw(ctx, name)
	if err != nil {
		return nil, err
	}

	var recs []record.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, domain.NewFetchError(name, fmt.Errorf("parse collection: %w", err))
	}
	return recs, nil
}

// Record decodes one record of a collection by slug.
func (r *Repo) Record(ctx context.Context, collection, slug string) (record.Record, error) {
	name := collection + "/" + slug
	data, err := r.Raw(ctx, name)
	if err != nil {
		return record.Record{}, err
	}

	var rec record.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record.Record{}, domain.NewFetchError(name, fmt.Errorf("parse record: %w", err))
	}
	return rec, nil
}

// Slugs lists the record slugs of a collection: the per-record files when the collection has a
// directory, otherwise the slugs found in the collection file. Sorted, without duplicates.
func (r *Repo) Slugs(ctx context.Context, collection string) ([]string, error) {
	if _, err := filePath(collection); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(r.fsys, collection)
	if err == nil {
		slugs := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() || path.Ext(e.Name()) != ".json" {
				continue
			}
			slugs = append(slugs, strings.TrimSuffix(e.Name(), ".json"))
		}
		sort.Strings(slugs)
		return slugs, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, domain.NewFetchError(collection, err)
	}

	recs, err := r.Collection(ctx, collection)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(recs))
	slugs := make([]string, 0, len(recs))
	for _, rec := range recs {
		s := rec.Slug()
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs, nil
}

// filePath maps a collection or collection/slug name to its file, rejecting anything that could
// leave the data directory.
func filePath(name string) (string, error) {
	parts := strings.Split(name, "/")
	if len(parts) > 2 {
		return "", fmt.Errorf("%w: name %q", domain.ErrInvalidRequest, name)
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, `\`) {
			return "", fmt.Errorf("%w: name %q", domain.ErrInvalidRequest, name)
		}
	}
	p := name + ".json"
	if !fs.ValidPath(p) {
		return "", fmt.Errorf("%w: name %q", domain.ErrInvalidRequest, name)
	}
	return p, nil
}
