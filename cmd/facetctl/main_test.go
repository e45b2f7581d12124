package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testConfig = `{
  "aggregations": {
    "genre": {"title": "Genre", "size": 10, "sort": "count"},
    "gender": {"title": "Gender", "size": 10, "sort": "key"}
  },
  "searchableFields": ["title"],
  "sortings": {"title_asc": {"field": "title", "order": "asc"}}
}`

const testDocs = `[
  {"id": "F1", "title": ["Amour"], "genre": ["Drama"], "gender": ["Female identifying"]},
  {"id": "F2", "title": ["The Duke"], "genre": ["Comedy", "Drama"], "gender": ["Male identifying"]}
]`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/config/films", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testConfig))
	})
	mux.HandleFunc("/api/search/films.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testDocs))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFilterFlag(t *testing.T) {
	f := filterFlag{}
	for _, v := range []string{"genre=Drama", "genre=Comedy", "gender=Male identifying"} {
		if err := f.Set(v); err != nil {
			t.Fatalf("set %q: %v", v, err)
		}
	}
	if len(f["genre"]) != 2 || f["gender"][0] != "Male identifying" {
		t.Errorf("unexpected filters: %v", f)
	}
	if err := f.Set("nope"); err == nil {
		t.Error("expected error without '='")
	}
	if err := f.Set("=x"); err == nil {
		t.Error("expected error for empty facet")
	}
}

func TestParseFlags(t *testing.T) {
	cfg := parseFlags([]string{"-ds", "biographies", "-q", "x", "-filter", "role=Director", "-per-page", "5"})
	if cfg.ds != "biographies" || cfg.query != "x" || cfg.perPage != 5 || cfg.page != 1 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if got := cfg.filters.String(); got != "role=Director" {
		t.Errorf("unexpected filters: %q", got)
	}
}

func TestRun_Search(t *testing.T) {
	srv := newTestServer(t)
	cfg := parseFlags([]string{"-base", srv.URL, "-ds", "films", "-filter", "genre=Comedy", "-timeout", "10s"})

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "1 total") || !strings.Contains(got, "The Duke") {
		t.Errorf("unexpected output:\n%s", got)
	}
	if strings.Contains(got, "Amour") {
		t.Errorf("filtered document listed:\n%s", got)
	}
	if !strings.Contains(got, "* Comedy") {
		t.Errorf("expected selected bucket marker:\n%s", got)
	}
}

func TestRun_Insights(t *testing.T) {
	srv := newTestServer(t)
	cfg := parseFlags([]string{"-base", srv.URL, "-insights", "genre", "-group-by", "gender"})
	cfg.timeout = 10 * time.Second

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "There are ") {
		t.Errorf("expected summary label first:\n%s", out.String())
	}
}

func TestRun_UnknownDataSource(t *testing.T) {
	srv := newTestServer(t)
	cfg := parseFlags([]string{"-base", srv.URL, "-ds", "posters"})

	err := run(context.Background(), cfg, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
}
