package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/facet"
)

func docs(ids ...string) []facet.Document {
	out := make([]facet.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, facet.Document{
			"id":    facet.Single(facet.String(id)),
			"title": facet.Strings("Title " + id),
			"role":  facet.Strings("Actor"),
		})
	}
	return out
}

func testConfig() facet.Config {
	return facet.Config{
		Aggregations: map[string]facet.Aggregation{
			"role": {
				Title: "Role", Size: 10, Sort: facet.SortByKey,
				CombineWith: []facet.Combination{{Key: "gender", Field: "gender"}},
			},
		},
		SearchableFields: facet.FieldList{"title"},
	}
}

type memFetcher struct {
	data  map[string][]facet.Document
	gate  chan struct{}
	calls atomic.Int32
}

func (f *memFetcher) Fetch(ctx context.Context, _, dataSource string) ([]facet.Document, error) {
	f.calls.Add(1)
	if dataSource == "slow" && f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d, ok := f.data[dataSource]
	if !ok {
		return nil, domain.NewFetchError(dataSource, errors.New("no such file"))
	}
	return d, nil
}

type countingObserver struct {
	handled atomic.Int32
	stale   atomic.Int32
}

func (o *countingObserver) MessageHandled(string, time.Duration, bool) { o.handled.Add(1) }
func (o *countingObserver) StaleResponse()                             { o.stale.Add(1) }

func startWorker(t *testing.T, f Fetcher, opts ...Option) *Worker {
	t.Helper()
	w := New(f, opts...)
	w.Start(context.Background())
	t.Cleanup(w.Terminate)
	return w
}

func resultIDs(t *testing.T, msg Message) []string {
	t.Helper()
	p, ok := msg.Results()
	require.True(t, ok, "message %s carries no results", msg.Action)
	out := make([]string, 0, len(p.Results.Items))
	for _, d := range p.Results.Items {
		out = append(out, d.ID())
	}
	return out
}

func nextUpdate(t *testing.T, h *Host) Message {
	t.Helper()
	select {
	case msg, ok := <-h.Updates():
		require.True(t, ok, "updates closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return Message{}
	}
}

func TestClient_LoadThenIdentitySearch(t *testing.T) {
	f := &memFetcher{data: map[string][]facet.Document{"films": docs("a", "b", "c")}}
	c := NewClient(startWorker(t, f))
	ctx := context.Background()

	require.NoError(t, c.Load(ctx, LoadPayload{DataSource: "films", Config: testConfig()}))

	res, err := c.Search(ctx, SearchPayload{DataSource: "films"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pagination.Total)
	assert.Contains(t, res.Aggregations, "role:::gender", "combined facets are registered on load")
	assert.Contains(t, res.Aggregations, "gender:::role")
}

func TestClient_HugePageKeepsWorkerAlive(t *testing.T) {
	f := &memFetcher{data: map[string][]facet.Document{"films": docs("a", "b", "c")}}
	c := NewClient(startWorker(t, f))
	ctx := context.Background()
	require.NoError(t, c.Load(ctx, LoadPayload{DataSource: "films", Config: testConfig()}))

	res, err := c.Search(ctx, SearchPayload{DataSource: "films", Page: 1e18, PerPage: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	res, err = c.Search(ctx, SearchPayload{DataSource: "films"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pagination.Total)
}

func TestClient_SearchBeforeLoad(t *testing.T) {
	c := NewClient(startWorker(t, &memFetcher{}))
	_, err := c.Search(context.Background(), SearchPayload{DataSource: "ghost"})
	require.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestClient_LoadFailureKeepsWorkerUsable(t *testing.T) {
	f := &memFetcher{data: map[string][]facet.Document{"films": docs("a")}}
	c := NewClient(startWorker(t, f))
	ctx := context.Background()

	err := c.Load(ctx, LoadPayload{DataSource: "missing", Config: testConfig()})
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "missing", fetchErr.Source)

	require.NoError(t, c.Load(ctx, LoadPayload{DataSource: "films", Config: testConfig()}))
	res, err := c.Insights(ctx, SearchPayload{DataSource: "films"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pagination.Total)
}

func TestClient_InitializeIsIdempotentReloadReplaces(t *testing.T) {
	f := &memFetcher{data: map[string][]facet.Document{"films": docs("a", "b")}}
	c := NewClient(startWorker(t, f))
	ctx := context.Background()

	require.NoError(t, c.Load(ctx, LoadPayload{DataSource: "films", Config: testConfig()}))
	f.data["films"] = docs("z")

	require.NoError(t, c.Load(ctx, LoadPayload{DataSource: "films", Config: testConfig()}))
	res, err := c.Search(ctx, SearchPayload{DataSource: "films"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pagination.Total)

	require.NoError(t, c.Load(ctx, LoadPayload{DataSource: "films", Config: testConfig(), Reload: true}))
	res, err = c.Search(ctx, SearchPayload{DataSource: "films"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pagination.Total)
}

func TestClient_AbandonedCallIsSkipped(t *testing.T) {
	f := &memFetcher{
		data: map[string][]facet.Document{"slow": docs("s"), "films": docs("a", "b")},
		gate: make(chan struct{}),
	}
	c := NewClient(startWorker(t, f))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Load(ctx, LoadPayload{DataSource: "slow", Config: testConfig()})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(f.gate)
	require.NoError(t, c.Load(context.Background(), LoadPayload{DataSource: "films", Config: testConfig()}))
	res, err := c.Search(context.Background(), SearchPayload{DataSource: "films"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pagination.Total)
}

func TestWorker_Terminate(t *testing.T) {
	w := startWorker(t, &memFetcher{})
	w.Terminate()

	require.ErrorIs(t, w.Post(Search(SearchPayload{DataSource: "films"})), domain.ErrTerminated)
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed")
	}

	_, err := NewClient(w).Search(context.Background(), SearchPayload{DataSource: "films"})
	require.ErrorIs(t, err, domain.ErrTerminated)
}

func TestWorker_UnsupportedAction(t *testing.T) {
	obs := &countingObserver{}
	c := NewClient(startWorker(t, &memFetcher{}, WithObserver(obs)))
	_, err := c.roundTrip(context.Background(), Message{Action: ActionReady})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, int32(1), obs.handled.Load())
}

func TestHost_LoadSearchLifecycle(t *testing.T) {
	f := &memFetcher{data: map[string][]facet.Document{"films": docs("a", "b")}}
	h := NewHost(New(f))
	t.Cleanup(h.Terminate)
	assert.Equal(t, StatusIdle, h.Status())

	require.NoError(t, h.Init(context.Background(), "", "films", testConfig()))
	msg := nextUpdate(t, h)
	assert.Equal(t, ActionReady, msg.Action)
	assert.Equal(t, StatusReady, h.Status())

	require.NoError(t, h.Search(SearchPayload{DataSource: "films", Query: "title"}))
	msg = nextUpdate(t, h)
	assert.Equal(t, ActionResults, msg.Action)
	assert.Equal(t, []string{"a", "b"}, resultIDs(t, msg))
	assert.Equal(t, StatusResults, h.Status())

	require.NoError(t, h.Insights(SearchPayload{DataSource: "films", Query: "a"}))
	msg = nextUpdate(t, h)
	assert.Equal(t, ActionInsightsResults, msg.Action)
	assert.Equal(t, StatusInsightsResults, h.Status())
}

func TestHost_ErrorReturnsToReady(t *testing.T) {
	h := NewHost(New(&memFetcher{}))
	t.Cleanup(h.Terminate)

	require.NoError(t, h.Init(context.Background(), "", "films", testConfig()))
	msg := nextUpdate(t, h)
	assert.Equal(t, ActionError, msg.Action)
	assert.Contains(t, msg.ErrorText(), "failed to load films")
	assert.Equal(t, StatusReady, h.Status())
	assert.NotEmpty(t, h.Err())

	require.NoError(t, h.Search(SearchPayload{DataSource: "films", Sort: "nope"}))
	msg = nextUpdate(t, h)
	assert.Equal(t, ActionError, msg.Action)
	assert.Equal(t, StatusReady, h.Status())
}

func TestHost_DiscardsStaleResults(t *testing.T) {
	f := &memFetcher{
		data: map[string][]facet.Document{"slow": docs("duke", "cats")},
		gate: make(chan struct{}),
	}
	obs := &countingObserver{}
	h := NewHost(New(f, WithObserver(obs)))
	t.Cleanup(h.Terminate)

	require.NoError(t, h.Init(context.Background(), "", "slow", testConfig()))
	// both queries queue behind the blocked load
	require.NoError(t, h.Search(SearchPayload{DataSource: "slow", Query: "duke"}))
	require.NoError(t, h.Search(SearchPayload{DataSource: "slow", Query: "cats"}))
	close(f.gate)

	assert.Equal(t, ActionReady, nextUpdate(t, h).Action)
	msg := nextUpdate(t, h)
	require.Equal(t, ActionResults, msg.Action)
	p, _ := msg.Results()
	assert.Equal(t, "cats", p.Query)
	assert.Equal(t, []string{"cats"}, resultIDs(t, msg))
	assert.Equal(t, int32(1), obs.stale.Load())
}

func TestHost_Terminate(t *testing.T) {
	f := &memFetcher{data: map[string][]facet.Document{"films": docs("a")}}
	h := NewHost(New(f))
	require.NoError(t, h.Init(context.Background(), "", "films", testConfig()))
	nextUpdate(t, h)

	h.Terminate()
	assert.Equal(t, StatusIdle, h.Status())
	assert.Empty(t, h.Err())
	require.ErrorIs(t, h.Search(SearchPayload{DataSource: "films"}), domain.ErrTerminated)

	select {
	case _, ok := <-h.Updates():
		assert.False(t, ok, "no update after terminate")
	case <-time.After(time.Second):
		t.Fatal("updates not closed")
	}
}

func TestMessage_JSON(t *testing.T) {
	in := `{"action":"load","payload":{"basePath":"http://localhost:8080","dataSource":"films",
		"config":{"aggregations":{"role":{"title":"Role","size":5,"sort":"key","hide_zero_doc_count":true}},
		"searchableFields":["title"],"sortings":{}},"reload":true}}`
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(in), &msg))
	p, ok := msg.Payload.(LoadPayload)
	require.True(t, ok)
	assert.Equal(t, "films", p.DataSource)
	assert.True(t, p.Reload)
	assert.Equal(t, 5, p.Config.Aggregations["role"].Size)

	require.NoError(t, json.Unmarshal([]byte(`{"action":"search","payload":{"dataSource":"films","query":"duke","filters":{"role":["Actor"]}}}`), &msg))
	sp, ok := msg.Payload.(SearchPayload)
	require.True(t, ok)
	assert.Equal(t, []string{"Actor"}, sp.Filters["role"])

	require.NoError(t, json.Unmarshal([]byte(`{"action":"error","payload":"boom"}`), &msg))
	assert.Equal(t, "boom", msg.ErrorText())
	assert.EqualError(t, msg.Err(), "boom")

	require.NoError(t, json.Unmarshal([]byte(`{"action":"ready"}`), &msg))
	assert.Nil(t, msg.Payload)

	require.Error(t, json.Unmarshal([]byte(`{"action":"explode"}`), &msg))
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search/films.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"GB2022_076","releaseYear":2022,"genre":["Comedy"]}]`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client())
	got, err := f.Fetch(context.Background(), srv.URL+"/", "films")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GB2022_076", got[0].ID())

	_, err = f.Fetch(context.Background(), srv.URL, "ghost")
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestSearchDataURL(t *testing.T) {
	assert.Equal(t, "http://host/api/search/films.json", SearchDataURL("http://host/", "films"))
	assert.Equal(t, "/api/search/a%20b.json", SearchDataURL("", "a b"))
}
