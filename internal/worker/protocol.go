package worker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/facetdex/internal/domain/facet"
	"github.com/kailas-cloud/facetdex/internal/engine"
)

// Action names a protocol message.
type Action string

// Protocol actions.
const (
	ActionLoad            Action = "load"
	ActionReady           Action = "ready"
	ActionSearch          Action = "search"
	ActionResults         Action = "results"
	ActionInsights        Action = "insights"
	ActionInsightsResults Action = "insights_results"
	ActionError           Action = "error"
)

// terminal reports whether the action answers a request.
func (a Action) terminal() bool {
	switch a {
	case ActionReady, ActionResults, ActionInsightsResults, ActionError:
		return true
	}
	return false
}

// LoadPayload asks the worker to fetch and index a data source.
type LoadPayload struct {
	BasePath   string       `json:"basePath"`
	DataSource string       `json:"dataSource"`
	Config     facet.Config `json:"config"`
	Reload     bool         `json:"reload,omitempty"`
}

// SearchPayload is the query of a search or insights request.
type SearchPayload = engine.Request

// ResultsPayload answers a search or insights request, echoing its query string.
type ResultsPayload struct {
	Query   string         `json:"query"`
	Results *engine.Result `json:"results"`
}

// Message is one protocol message. Payload holds a LoadPayload, SearchPayload, ResultsPayload,
// an error string, or nil, depending on Action.
type Message struct {
	Action  Action `json:"action"`
	Payload any    `json:"payload,omitempty"`

	err error // in-process only, not serialized
}

// Load builds a load message.
func Load(p LoadPayload) Message { return Message{Action: ActionLoad, Payload: p} }

// Search builds a search message.
func Search(p SearchPayload) Message { return Message{Action: ActionSearch, Payload: p} }

// Insights builds an insights message.
func Insights(p SearchPayload) Message { return Message{Action: ActionInsights, Payload: p} }

// Error builds an error message.
func Error(err error) Message { return Message{Action: ActionError, Payload: err.Error(), err: err} }

// Err returns the error carried by an error message, or nil.
func (m Message) Err() error {
	if m.Action != ActionError {
		return nil
	}
	if m.err != nil {
		return m.err
	}
	return errors.New(m.ErrorText())
}

// ErrorText returns the payload of an error message.
func (m Message) ErrorText() string {
	s, _ := m.Payload.(string)
	return s
}

// Results returns the payload of a results or insights_results message.
func (m Message) Results() (ResultsPayload, bool) {
	p, ok := m.Payload.(ResultsPayload)
	return p, ok
}

// UnmarshalJSON decodes the payload into the type its action carries.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Action  Action          `json:"action"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	m.Action = raw.Action
	m.Payload = nil
	if len(raw.Payload) == 0 || string(raw.Payload) == "null" {
		return nil
	}

	var err error
	switch raw.Action {
	case ActionLoad:
		var p LoadPayload
		err = json.Unmarshal(raw.Payload, &p)
		m.Payload = p
	case ActionSearch, ActionInsights:
		var p SearchPayload
		err = json.Unmarshal(raw.Payload, &p)
		m.Payload = p
	case ActionResults, ActionInsightsResults:
		var p ResultsPayload
		err = json.Unmarshal(raw.Payload, &p)
		m.Payload = p
	case ActionError:
		var s string
		err = json.Unmarshal(raw.Payload, &s)
		m.Payload = s
	case ActionReady:
	default:
		return fmt.Errorf("decode message: unknown action %q", raw.Action)
	}
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", raw.Action, err)
	}
	return nil
}
