package observe

import (
	"time"

	"github.com/google/uuid"
)

// Operation names the mutating call that produced an event.
type Operation string

const (
	OpAddMessage Operation = "add_message"
	OpSet        Operation = "set"
	OpUpdate     Operation = "update"
	OpSetScope   Operation = "set_scope"
)

// Outcome summarizes how the operation went.
type Outcome string

const (
	OutcomeOK Outcome = "ok"
	// OutcomeDegraded marks a message that fell back to the string-system form.
	OutcomeDegraded Outcome = "degraded"
)

// Event is the structured record handed to a Sink.
type Event struct {
	ID         string         `json:"id"`
	Operation  Operation      `json:"operation"`
	Actor      string         `json:"actor"`
	Timestamp  time.Time      `json:"timestamp"`
	Outcome    Outcome        `json:"outcome"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// NewEvent creates an event with a fresh ID and the current UTC time.
func NewEvent(op Operation, actor string, outcome Outcome) Event {
	return Event{
		ID:        uuid.NewString(),
		Operation: op,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Outcome:   outcome,
	}
}

// With returns a copy of e with an extra attribute.
func (e Event) With(key string, value any) Event {
	attrs := make(map[string]any, len(e.Attributes)+1)
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	attrs[key] = value
	e.Attributes = attrs
	return e
}
