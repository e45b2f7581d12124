package worker

import (
	"context"
	"sync"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/facet"
)

// Status is the host-side view of the worker state.
type Status string

// Host statuses.
const (
	StatusIdle            Status = "idle"
	StatusLoad            Status = "load"
	StatusReady           Status = "ready"
	StatusSearch          Status = "search"
	StatusResults         Status = "results"
	StatusInsights        Status = "insights"
	StatusInsightsResults Status = "insights_results"
)

// Host drives a worker from the caller side. It tracks the worker status and the last
// transient error, and drops results whose echoed query is not the latest one issued.
type Host struct {
	worker   *Worker
	observer Observer

	mu         sync.Mutex
	status     Status
	lastErr    string
	latest     string
	terminated bool

	updates    chan Message
	stopped    chan struct{}
	listenOnce sync.Once
}

// NewHost creates a host for w. The worker is started by Init.
func NewHost(w *Worker) *Host {
	return &Host{
		worker:   w,
		observer: w.observer,
		status:   StatusIdle,
		updates:  make(chan Message, queueSize),
		stopped:  make(chan struct{}),
	}
}

// Init starts the worker and sends the load command for a data source.
func (h *Host) Init(ctx context.Context, basePath, dataSource string, cfg facet.Config) error {
	h.worker.Start(ctx)
	h.listenOnce.Do(func() { go h.listen() })
	return h.post(StatusLoad, "", Load(LoadPayload{BasePath: basePath, DataSource: dataSource, Config: cfg}))
}

// Reload asks the worker to rebuild the index of a data source.
func (h *Host) Reload(basePath, dataSource string, cfg facet.Config) error {
	return h.post(StatusLoad, "", Load(LoadPayload{BasePath: basePath, DataSource: dataSource, Config: cfg, Reload: true}))
}

// Search issues a query. Earlier queries still in flight become stale.
func (h *Host) Search(req SearchPayload) error {
	return h.post(StatusSearch, req.Query, Search(req))
}

// Insights issues a query for chart data. Earlier queries still in flight become stale.
func (h *Host) Insights(req SearchPayload) error {
	return h.post(StatusInsights, req.Query, Insights(req))
}

func (h *Host) post(status Status, query string, msg Message) error {
	h.mu.Lock()
	if h.terminated {
		h.mu.Unlock()
		return domain.ErrTerminated
	}
	h.status = status
	if msg.Action == ActionSearch || msg.Action == ActionInsights {
		h.latest = query
	}
	h.mu.Unlock()
	return h.worker.Post(msg)
}

// Status returns the current status.
func (h *Host) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Err returns the last transient error message, or "".
func (h *Host) Err() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// Updates delivers ready, error and fresh results messages. It closes after Terminate.
func (h *Host) Updates() <-chan Message { return h.updates }

// Terminate stops the worker. No update is delivered afterwards.
func (h *Host) Terminate() {
	h.mu.Lock()
	if h.terminated {
		h.mu.Unlock()
		return
	}
	h.terminated = true
	h.status = StatusIdle
	h.lastErr = ""
	h.mu.Unlock()

	close(h.stopped)
	h.listenOnce.Do(func() { close(h.updates) })
	h.worker.Terminate()
}

func (h *Host) listen() {
	defer close(h.updates)
	for {
		select {
		case <-h.stopped:
			return
		case msg, ok := <-h.worker.Messages():
			if !ok {
				return
			}
			if !h.apply(msg) {
				continue
			}
			select {
			case h.updates <- msg:
			case <-h.stopped:
				return
			}
		}
	}
}

// apply updates the state for msg and reports whether it should be delivered.
func (h *Host) apply(msg Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.terminated {
		return false
	}

	switch msg.Action {
	case ActionReady:
		h.status = StatusReady
		h.lastErr = ""
	case ActionError:
		h.status = StatusReady
		h.lastErr = msg.ErrorText()
	case ActionResults, ActionInsightsResults:
		p, _ := msg.Results()
		if p.Query != h.latest {
			h.observer.StaleResponse()
			return false
		}
		h.lastErr = ""
		h.status = StatusResults
		if msg.Action == ActionInsightsResults {
			h.status = StatusInsightsResults
		}
	default:
		return false
	}
	return true
}
