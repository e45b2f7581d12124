package worker

import (
	"context"
	"sync"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/engine"
)

// Client runs synchronous round trips against a started worker. Calls are serialized so every
// answer pairs with its request; answers to abandoned calls are discarded.
type Client struct {
	worker *Worker

	mu   sync.Mutex
	skip int
}

// NewClient creates a client. The caller owns the worker lifecycle.
func NewClient(w *Worker) *Client {
	return &Client{worker: w}
}

// Load fetches and indexes a data source.
func (c *Client) Load(ctx context.Context, p LoadPayload) error {
	_, err := c.roundTrip(ctx, Load(p))
	return err
}

// Search runs a query.
func (c *Client) Search(ctx context.Context, req SearchPayload) (*engine.Result, error) {
	return c.results(ctx, Search(req))
}

// Insights runs a query through the insights channel.
func (c *Client) Insights(ctx context.Context, req SearchPayload) (*engine.Result, error) {
	return c.results(ctx, Insights(req))
}

func (c *Client) results(ctx context.Context, msg Message) (*engine.Result, error) {
	reply, err := c.roundTrip(ctx, msg)
	if err != nil {
		return nil, err
	}
	p, _ := reply.Results()
	return p.Results, nil
}

func (c *Client) roundTrip(ctx context.Context, msg Message) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.worker.Post(msg); err != nil {
		return Message{}, err
	}
	for {
		select {
		case <-ctx.Done():
			c.skip++
			return Message{}, ctx.Err()
		case reply, ok := <-c.worker.Messages():
			if !ok {
				return Message{}, domain.ErrTerminated
			}
			if !reply.Action.terminal() {
				continue
			}
			if c.skip > 0 {
				c.skip--
				continue
			}
			if err := reply.Err(); err != nil {
				return Message{}, err
			}
			return reply, nil
		}
	}
}
