// Package worker runs the search engine on its own goroutine. The host talks to it only
// through protocol messages: load, search and insights in; load, ready, results,
// insights_results and error out.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/engine"
)

const queueSize = 64

// Observer receives worker instrumentation.
type Observer interface {
	MessageHandled(action string, d time.Duration, failed bool)
	StaleResponse()
}

type nopObserver struct{}

func (nopObserver) MessageHandled(string, time.Duration, bool) {}
func (nopObserver) StaleResponse()                             {}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the worker logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) { w.log = l }
}

// WithObserver sets the instrumentation sink.
func WithObserver(o Observer) Option {
	return func(w *Worker) { w.observer = o }
}

// Worker owns an engine registry and processes messages one at a time, in arrival order.
type Worker struct {
	id       string
	fetcher  Fetcher
	registry *engine.Registry
	log      *zap.Logger
	observer Observer

	inbox  chan Message
	outbox chan Message
	done   chan struct{}
	cancel context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a worker. Call Start to run it.
func New(fetcher Fetcher, opts ...Option) *Worker {
	w := &Worker{
		id:       uuid.NewString(),
		fetcher:  fetcher,
		registry: engine.NewRegistry(),
		log:      zap.NewNop(),
		observer: nopObserver{},
		inbox:    make(chan Message, queueSize),
		outbox:   make(chan Message, queueSize),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With(zap.String("worker_id", w.id))
	return w
}

// ID returns the worker identifier.
func (w *Worker) ID() string { return w.id }

// Start launches the processing goroutine. ctx bounds fetches; cancelling it terminates the worker.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		ctx, w.cancel = context.WithCancel(ctx)
		go w.run(ctx)
	})
}

// Post enqueues a message. It fails once the worker is terminated.
func (w *Worker) Post(msg Message) error {
	if w.terminated() {
		return domain.ErrTerminated
	}
	select {
	case w.inbox <- msg:
		return nil
	case <-w.done:
		return domain.ErrTerminated
	}
}

// Messages returns the outgoing messages. The channel closes after termination.
func (w *Worker) Messages() <-chan Message { return w.outbox }

// Done is closed once the worker is terminated.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Terminate stops the worker and releases its indexes. Pending messages are dropped.
func (w *Worker) Terminate() {
	w.stopOnce.Do(func() {
		close(w.done)
		if w.cancel != nil {
			w.cancel()
		}
	})
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.outbox)
	defer w.registry.Terminate()
	w.log.Info("worker_started")

	for {
		select {
		case <-w.done:
			w.log.Info("worker_terminated")
			return
		case <-ctx.Done():
			w.Terminate()
			w.log.Info("worker_terminated", zap.Error(ctx.Err()))
			return
		case msg := <-w.inbox:
			if w.terminated() {
				return
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg Message) {
	start := time.Now()
	var reply Message
	switch msg.Action {
	case ActionLoad:
		p, ok := msg.Payload.(LoadPayload)
		if !ok {
			reply = payloadError(msg)
			break
		}
		w.emit(Message{Action: ActionLoad})
		reply = w.load(ctx, p)
	case ActionSearch, ActionInsights:
		p, ok := msg.Payload.(SearchPayload)
		if !ok {
			reply = payloadError(msg)
			break
		}
		reply = w.search(msg.Action, p)
	default:
		reply = Error(fmt.Errorf("%w: unsupported action %q", domain.ErrInvalidRequest, msg.Action))
	}

	failed := reply.Action == ActionError
	w.observer.MessageHandled(string(msg.Action), time.Since(start), failed)
	if failed {
		w.log.Warn("worker_message_failed",
			zap.String("action", string(msg.Action)),
			zap.String("error", reply.ErrorText()),
		)
	}
	w.emit(reply)
}

func (w *Worker) load(ctx context.Context, p LoadPayload) Message {
	start := time.Now()
	docs, err := w.fetcher.Fetch(ctx, p.BasePath, p.DataSource)
	if err != nil {
		return Error(err)
	}

	cfg := p.Config.WithCombinations()
	if p.Reload {
		err = w.registry.Reload(p.DataSource, docs, cfg)
	} else {
		err = w.registry.Initialize(p.DataSource, docs, cfg)
	}
	if err != nil {
		return Error(err)
	}

	w.log.Info("data_source_loaded",
		zap.String("data_source", p.DataSource),
		zap.Int("documents", len(docs)),
		zap.Bool("reload", p.Reload),
		zap.Duration("duration", time.Since(start)),
	)
	return Message{Action: ActionReady}
}

func (w *Worker) search(action Action, p SearchPayload) (reply Message) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("worker_search_panic", zap.Any("panic", r), zap.String("data_source", p.DataSource))
			reply = Error(fmt.Errorf("search %s: panic: %v", p.DataSource, r))
		}
	}()

	res, err := w.registry.Query(p)
	if err != nil {
		return Error(err)
	}
	out := ActionResults
	if action == ActionInsights {
		out = ActionInsightsResults
	}
	return Message{Action: out, Payload: ResultsPayload{Query: p.Query, Results: res}}
}

func (w *Worker) emit(msg Message) {
	if w.terminated() {
		return
	}
	select {
	case w.outbox <- msg:
	case <-w.done:
	}
}

func (w *Worker) terminated() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func payloadError(msg Message) Message {
	return Error(fmt.Errorf("%w: unexpected %s payload %T", domain.ErrInvalidRequest, msg.Action, msg.Payload))
}
