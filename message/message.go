package message

import (
	"fmt"
	"time"

	"github.com/hupe1980/meshstate/internal/util"
)

// Mapping keys of the plain (JSON-style) record form.
const (
	KeyType             = "type"
	KeyContent          = "content"
	KeyTimestamp        = "timestamp"
	KeyMetadata         = "metadata"
	KeyAdditionalKwargs = "additional_kwargs"
	KeyFromAgent        = "from_agent"
	KeyToAgent          = "to_agent"
	KeyConversationID   = "conversation_id"
	KeyToolCallID       = "tool_call_id"
	KeyToolName         = "tool_name"
	KeyToolOutput       = "tool_output"
)

var knownKeys = map[string]bool{
	KeyType: true, KeyContent: true, KeyTimestamp: true, KeyMetadata: true,
	KeyAdditionalKwargs: true, KeyFromAgent: true, KeyToAgent: true,
	KeyConversationID: true, KeyToolCallID: true, KeyToolName: true, KeyToolOutput: true,
}

// Message is the canonical, serializable message record. Optional string
// fields use the empty string for "absent". Tool fields are only populated for
// TypeTool messages.
//
// A Message is treated as immutable once it has been created by the
// canonicalizer; the conversation log stamps routing onto its own copies.
type Message struct {
	Type             Type           `json:"type"`
	Content          string         `json:"content"`
	Timestamp        time.Time      `json:"timestamp"`
	Metadata         map[string]any `json:"metadata"`
	AdditionalKwargs map[string]any `json:"additional_kwargs"`

	FromAgent      string `json:"from_agent,omitempty"`
	ToAgent        string `json:"to_agent,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`

	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolOutput string `json:"tool_output,omitempty"`
}

// New creates a message of the given type stamped with the current UTC time.
func New(t Type, content string) Message {
	return Message{
		Type:             t,
		Content:          content,
		Timestamp:        normalizeTime(time.Now()),
		Metadata:         map[string]any{},
		AdditionalKwargs: map[string]any{},
	}
}

// normalizeTime strips the monotonic clock reading and forces UTC so that a
// timestamp survives a text round trip unchanged.
func normalizeTime(t time.Time) time.Time { return t.UTC().Round(0) }

// Clone returns a copy with its own Metadata and AdditionalKwargs maps.
func (m Message) Clone() Message {
	out := m
	out.Metadata = util.DeepCopyMap(m.Metadata)
	out.AdditionalKwargs = util.DeepCopyMap(m.AdditionalKwargs)
	return out
}

// WithRouting returns a clone of m addressed from -> to.
func (m Message) WithRouting(from, to string) Message {
	out := m.Clone()
	out.FromAgent = from
	out.ToAgent = to
	return out
}

// ToMap encodes the message as a plain string-keyed record. Every key is
// always present; absent optional strings are encoded as nil.
func (m Message) ToMap() map[string]any {
	return map[string]any{
		KeyType:             string(m.Type),
		KeyContent:          m.Content,
		KeyTimestamp:        m.Timestamp.Format(time.RFC3339Nano),
		KeyMetadata:         orEmpty(util.DeepCopyMap(m.Metadata)),
		KeyAdditionalKwargs: orEmpty(util.DeepCopyMap(m.AdditionalKwargs)),
		KeyFromAgent:        optional(m.FromAgent),
		KeyToAgent:          optional(m.ToAgent),
		KeyConversationID:   optional(m.ConversationID),
		KeyToolCallID:       optional(m.ToolCallID),
		KeyToolName:         optional(m.ToolName),
		KeyToolOutput:       optional(m.ToolOutput),
	}
}

// FromMap decodes a record produced by ToMap (or an equivalent JSON object).
// The type and content keys are required; a missing timestamp defaults to
// now. Unknown keys or mistyped values are rejected with ErrInvalidRecord.
func FromMap(rec map[string]any) (Message, error) {
	return fromMap(rec, time.Now)
}

// fromMap is FromMap with the clock used for a missing timestamp.
func fromMap(rec map[string]any, now func() time.Time) (Message, error) {
	if rec == nil {
		return Message{}, fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	for k := range rec {
		if !knownKeys[k] {
			return Message{}, fmt.Errorf("%w: unknown key %q", ErrInvalidRecord, k)
		}
	}

	rawType, ok := rec[KeyType]
	if !ok {
		return Message{}, fmt.Errorf("%w: missing %q", ErrInvalidRecord, KeyType)
	}
	typeStr, err := asString(KeyType, rawType)
	if err != nil {
		return Message{}, err
	}
	t, err := ParseType(typeStr)
	if err != nil {
		return Message{}, err
	}

	rawContent, ok := rec[KeyContent]
	if !ok {
		return Message{}, fmt.Errorf("%w: missing %q", ErrInvalidRecord, KeyContent)
	}
	content, err := asString(KeyContent, rawContent)
	if err != nil {
		return Message{}, err
	}

	msg := Message{Type: t, Content: content}

	if msg.Timestamp, err = asTime(rec[KeyTimestamp], now); err != nil {
		return Message{}, err
	}
	if msg.Metadata, err = asMap(KeyMetadata, rec[KeyMetadata]); err != nil {
		return Message{}, err
	}
	if msg.AdditionalKwargs, err = asMap(KeyAdditionalKwargs, rec[KeyAdditionalKwargs]); err != nil {
		return Message{}, err
	}

	for key, dst := range map[string]*string{
		KeyFromAgent:      &msg.FromAgent,
		KeyToAgent:        &msg.ToAgent,
		KeyConversationID: &msg.ConversationID,
		KeyToolCallID:     &msg.ToolCallID,
		KeyToolName:       &msg.ToolName,
		KeyToolOutput:     &msg.ToolOutput,
	} {
		if *dst, err = asString(key, rec[key]); err != nil {
			return Message{}, err
		}
	}

	return msg, nil
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func asString(key string, v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return "", fmt.Errorf("%w: %q must be a string, got %T", ErrInvalidRecord, key, v)
	}
}

func asMap(key string, v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	m, ok := util.StringKeyedMap(v)
	if !ok {
		return nil, fmt.Errorf("%w: %q must be a mapping, got %T", ErrInvalidRecord, key, v)
	}
	return orEmpty(m), nil
}

func asTime(v any, now func() time.Time) (time.Time, error) {
	switch ts := v.(type) {
	case nil:
		return normalizeTime(now()), nil
	case time.Time:
		return normalizeTime(ts), nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: bad %q: %v", ErrInvalidRecord, KeyTimestamp, err)
		}
		return normalizeTime(parsed), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q must be a string or time, got %T", ErrInvalidRecord, KeyTimestamp, v)
	}
}
