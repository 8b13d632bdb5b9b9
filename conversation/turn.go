package conversation

import (
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/meshstate/message"
)

// Broadcast is the recipient label of a turn that was not addressed to anyone.
const Broadcast = "broadcast"

// Snapshot record keys.
const (
	KeyFromAgent   = "from_agent"
	KeyToAgent     = "to_agent"
	KeyMessage     = "message"
	KeyTurnNumber  = "turn_number"
	KeyTimestamp   = "timestamp"
	KeyUnaddressed = "unaddressed"
)

// Turn is one routed, numbered entry of the log.
type Turn struct {
	FromAgent  string          `json:"from_agent"`
	ToAgent    string          `json:"to_agent"`
	Message    message.Message `json:"message"`
	TurnNumber int             `json:"turn_number"`
	Timestamp  time.Time       `json:"timestamp"`
	// Unaddressed is set when the turn had no recipient and ToAgent only
	// carries the Broadcast label. An agent may itself be named "broadcast".
	Unaddressed bool `json:"unaddressed"`
}

// Broadcasted reports whether the turn had no explicit recipient.
func (t Turn) Broadcasted() bool { return t.Unaddressed }

// Involves reports whether agent is the sender or the recipient of the turn.
func (t Turn) Involves(agent string) bool {
	return t.FromAgent == agent || t.ToAgent == agent
}

// Clone returns a copy that shares no maps with t.
func (t Turn) Clone() Turn {
	t.Message = t.Message.Clone()
	return t
}

// ToMap encodes the turn as a plain record.
func (t Turn) ToMap() map[string]any {
	return map[string]any{
		KeyFromAgent:   t.FromAgent,
		KeyToAgent:     t.ToAgent,
		KeyMessage:     t.Message.ToMap(),
		KeyTurnNumber:  t.TurnNumber,
		KeyTimestamp:   t.Timestamp.Format(time.RFC3339Nano),
		KeyUnaddressed: t.Unaddressed,
	}
}

// TurnFromMap decodes a record produced by ToMap or read back from JSON.
func TurnFromMap(rec map[string]any) (Turn, error) {
	if rec == nil {
		return Turn{}, fmt.Errorf("%w: nil record", ErrInvalidTurn)
	}

	var t Turn
	var ok bool

	if t.FromAgent, ok = rec[KeyFromAgent].(string); !ok {
		return Turn{}, fmt.Errorf("%w: %s must be a string", ErrInvalidTurn, KeyFromAgent)
	}
	if t.ToAgent, ok = rec[KeyToAgent].(string); !ok || t.ToAgent == "" {
		return Turn{}, fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidTurn, KeyToAgent)
	}

	n, err := asTurnNumber(rec[KeyTurnNumber])
	if err != nil {
		return Turn{}, err
	}
	t.TurnNumber = n

	switch ts := rec[KeyTimestamp].(type) {
	case time.Time:
		t.Timestamp = ts.UTC().Round(0)
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Turn{}, fmt.Errorf("%w: %s: %v", ErrInvalidTurn, KeyTimestamp, err)
		}
		t.Timestamp = parsed.UTC()
	default:
		return Turn{}, fmt.Errorf("%w: %s must be a timestamp", ErrInvalidTurn, KeyTimestamp)
	}

	// records without the flag predate it and used the label alone
	switch v := rec[KeyUnaddressed].(type) {
	case nil:
		t.Unaddressed = t.ToAgent == Broadcast
	case bool:
		t.Unaddressed = v
	default:
		return Turn{}, fmt.Errorf("%w: %s must be a bool", ErrInvalidTurn, KeyUnaddressed)
	}

	msgRec, ok := rec[KeyMessage].(map[string]any)
	if !ok {
		return Turn{}, fmt.Errorf("%w: %s must be a record", ErrInvalidTurn, KeyMessage)
	}
	if t.Message, err = message.FromMap(msgRec); err != nil {
		return Turn{}, fmt.Errorf("%w: %w", ErrInvalidTurn, err)
	}
	return t, nil
}

func asTurnNumber(v any) (int, error) {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidTurn, KeyTurnNumber)
		}
		n = int(x)
	default:
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidTurn, KeyTurnNumber)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidTurn, KeyTurnNumber)
	}
	return n, nil
}
