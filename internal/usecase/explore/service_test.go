package explore

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/facet"
	"github.com/kailas-cloud/facetdex/internal/engine"
)

// --- Mocks ---

type mockPayloads struct {
	docs        map[string][]facet.Document
	configs     map[string]facet.Config
	invalidated []string
	invErr      error
}

func (m *mockPayloads) DataSources() []string {
	out := make([]string, 0, len(m.configs))
	for ds := range m.configs {
		out = append(out, ds)
	}
	return out
}

func (m *mockPayloads) Config(ds string) (facet.Config, error) {
	cfg, ok := m.configs[ds]
	if !ok {
		return facet.Config{}, domain.ErrNotFound
	}
	return cfg.Clone(), nil
}

func (m *mockPayloads) Documents(_ context.Context, ds string) ([]facet.Document, error) {
	docs, ok := m.docs[ds]
	if !ok {
		return nil, domain.NewFetchError(ds, domain.ErrNotFound)
	}
	return docs, nil
}

func (m *mockPayloads) Invalidate(_ context.Context, ds string) error {
	if m.invErr != nil {
		return m.invErr
	}
	m.invalidated = append(m.invalidated, ds)
	return nil
}

func filmDoc(id, title string, genres []string, gender ...string) facet.Document {
	return facet.Document{
		"id":     facet.Single(facet.String(id)),
		"title":  facet.Strings(title),
		"genre":  facet.Strings(genres...),
		"gender": facet.Strings(gender...),
	}
}

func newPayloads() *mockPayloads {
	return &mockPayloads{
		docs: map[string][]facet.Document{
			"films": {
				filmDoc("F1", "Amour", []string{"Drama"}, "Female identifying", "Male identifying"),
				filmDoc("F2", "The Duke", []string{"Comedy", "Drama"}, "Male identifying"),
				filmDoc("F3", "Toni Erdmann", []string{"Comedy", "Drama"}, "Female identifying"),
			},
		},
		configs: map[string]facet.Config{
			"films": {
				Aggregations: map[string]facet.Aggregation{
					"genre":  {Title: "Genre", Size: 10, Sort: facet.SortByCount},
					"gender": {Title: "Gender", Size: 10, Sort: facet.SortByKey, CombineWith: []facet.Combination{{Key: "genre", Field: "genre"}}},
				},
				SearchableFields: facet.FieldList{"title"},
				Sortings:         map[string]facet.Sorting{"title_asc": {Field: "title", Order: facet.Asc}},
			},
		},
	}
}

func startService(t *testing.T, p *mockPayloads) *Service {
	t.Helper()
	svc := New(p, Options{DefaultPageSize: 2, MaxPageSize: 10}, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func itemIDs(res *engine.Result) []string {
	out := make([]string, len(res.Items))
	for i, d := range res.Items {
		out[i] = d.ID()
	}
	return out
}

// --- Tests ---

func TestSearch_DefaultPaging(t *testing.T) {
	svc := startService(t, newPayloads())

	res, err := svc.Search(context.Background(), engine.Request{DataSource: "films", Sort: "title_asc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Pagination.Total != 3 || res.Pagination.PerPage != 2 || res.Pagination.Page != 1 {
		t.Errorf("unexpected pagination: %+v", res.Pagination)
	}
	ids := itemIDs(res)
	if len(ids) != 2 || ids[0] != "F1" || ids[1] != "F2" {
		t.Errorf("unexpected items: %v", ids)
	}
}

func TestSearch_InvalidPaging(t *testing.T) {
	svc := startService(t, newPayloads())

	for _, req := range []engine.Request{
		{DataSource: "films", Page: -1},
		{DataSource: "films", PerPage: -5},
		{DataSource: "films", PerPage: 11},
		{DataSource: "films", Page: 1e18, PerPage: 10},
		{DataSource: "films", Page: engine.MaxPage + 1},
	} {
		if _, err := svc.Search(context.Background(), req); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("%+v: expected ErrInvalidRequest, got %v", req, err)
		}
	}
}

func TestSearch_ErrorsPassThrough(t *testing.T) {
	svc := startService(t, newPayloads())
	ctx := context.Background()

	if _, err := svc.Search(ctx, engine.Request{DataSource: "films", Sort: "nope"}); !errors.Is(err, domain.ErrUnknownSort) {
		t.Errorf("expected ErrUnknownSort, got %v", err)
	}
	if _, err := svc.Search(ctx, engine.Request{DataSource: "posters"}); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestConfig_RegistersCombinations(t *testing.T) {
	svc := startService(t, newPayloads())

	cfg, err := svc.Config("films")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	forward, reverse := facet.CombinedNames("gender", facet.Combination{Key: "genre", Field: "genre"})
	for _, name := range []string{forward, reverse} {
		if _, ok := cfg.Aggregations[name]; !ok {
			t.Errorf("expected combined facet %q", name)
		}
	}

	if _, err := svc.Config("posters"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsights_GroupedBuckets(t *testing.T) {
	svc := startService(t, newPayloads())

	res, err := svc.Insights(context.Background(), InsightsRequest{
		Request: engine.Request{DataSource: "films"},
		Facet:   "genre",
		GroupBy: "gender",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 3 {
		t.Errorf("expected total 3, got %d", res.Total)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}

	drama, comedy := res.Rows[0], res.Rows[1]
	if drama.Key != "Drama" || drama.DocCount != 3 {
		t.Errorf("unexpected first row: %+v", drama.Bucket)
	}
	// groups follow the gender buckets (key order): Female, Male
	if len(drama.Groups) != 2 || drama.Groups[0].DocCount != 2 || drama.Groups[1].DocCount != 2 {
		t.Errorf("unexpected drama groups: %+v", drama.Groups)
	}
	if comedy.Key != "Comedy" || comedy.Groups[0].DocCount != 1 || comedy.Groups[1].DocCount != 1 {
		t.Errorf("unexpected comedy row: %+v", comedy)
	}

	want := "There are 5 total items across 2 genres. Highest count is 3 items for Drama, lowest is 2 items for Comedy."
	if res.Label != want {
		t.Errorf("unexpected label:\ngot:  %q\nwant: %q", res.Label, want)
	}
}

func TestInsights_FilteredQuery(t *testing.T) {
	svc := startService(t, newPayloads())

	res, err := svc.Insights(context.Background(), InsightsRequest{
		Request: engine.Request{DataSource: "films", Query: "duke"},
		Facet:   "genre",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || res.Query != "duke" {
		t.Errorf("unexpected result: total=%d query=%q", res.Total, res.Query)
	}
	for _, r := range res.Rows {
		if r.Groups != nil {
			t.Errorf("expected no groups without groupBy, got %+v", r.Groups)
		}
	}
}

func TestInsights_Errors(t *testing.T) {
	svc := startService(t, newPayloads())
	ctx := context.Background()

	if _, err := svc.Insights(ctx, InsightsRequest{Request: engine.Request{DataSource: "films"}}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.Insights(ctx, InsightsRequest{Request: engine.Request{DataSource: "films"}, Facet: "mood"}); !errors.Is(err, domain.ErrUnknownFacet) {
		t.Errorf("expected ErrUnknownFacet, got %v", err)
	}
	if _, err := svc.Insights(ctx, InsightsRequest{Request: engine.Request{DataSource: "films"}, Facet: "genre", GroupBy: "mood"}); !errors.Is(err, domain.ErrUnknownFacet) {
		t.Errorf("expected ErrUnknownFacet for groupBy, got %v", err)
	}
	if _, err := svc.Insights(ctx, InsightsRequest{Request: engine.Request{DataSource: "posters"}, Facet: "genre"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReload(t *testing.T) {
	p := newPayloads()
	svc := startService(t, p)
	ctx := context.Background()

	p.docs["films"] = append(p.docs["films"], filmDoc("F4", "Youth", []string{"Drama"}))
	if err := svc.Reload(ctx, "films"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.invalidated) != 1 || p.invalidated[0] != "films" {
		t.Errorf("expected payload invalidation, got %v", p.invalidated)
	}

	res, err := svc.Search(ctx, engine.Request{DataSource: "films"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Pagination.Total != 4 {
		t.Errorf("expected 4 documents after reload, got %d", res.Pagination.Total)
	}
}

func TestReload_FailureKeepsServing(t *testing.T) {
	p := newPayloads()
	svc := startService(t, p)
	ctx := context.Background()

	delete(p.docs, "films")
	if err := svc.Reload(ctx, "films"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	res, err := svc.Search(ctx, engine.Request{DataSource: "films"})
	if err != nil {
		t.Fatalf("worker must stay usable: %v", err)
	}
	if res.Pagination.Total != 3 {
		t.Errorf("expected previous index, got %d documents", res.Pagination.Total)
	}
}

func TestStart_Failure(t *testing.T) {
	p := newPayloads()
	p.configs["biographies"] = facet.Config{}
	svc := New(p, Options{}, zap.NewNop())
	defer svc.Close()

	if err := svc.Start(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClose_TerminatesQueries(t *testing.T) {
	svc := New(newPayloads(), Options{}, zap.NewNop())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	svc.Close()

	if _, err := svc.Search(context.Background(), engine.Request{DataSource: "films"}); !errors.Is(err, domain.ErrTerminated) {
		t.Fatalf("expected ErrTerminated, got %v", err)
	}
}

func TestReady(t *testing.T) {
	svc := New(newPayloads(), Options{}, zap.NewNop())
	defer svc.Close()
	svc.worker.Start(context.Background())

	if err := svc.Ready(context.Background()); !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized before load, got %v", err)
	}
	if err := svc.load(context.Background(), "films", false); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := svc.Ready(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
