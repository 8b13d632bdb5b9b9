package message

import (
	"fmt"
	"time"

	"github.com/hupe1980/meshstate/internal/util"
)

// Options configures a Canonicalizer.
type Options struct {
	// Recognizers translate provider SDK values into Variants. They are
	// consulted in order, after the built-in shapes.
	Recognizers []Recognizer

	// Now supplies creation timestamps (defaults to time.Now).
	Now func() time.Time
}

// Canonicalizer converts raw upstream messages into Messages. It holds no
// mutable state and is safe for concurrent use.
type Canonicalizer struct {
	recognizers []Recognizer
	now         func() time.Time
}

// NewCanonicalizer creates a Canonicalizer with optional overrides.
func NewCanonicalizer(optFns ...func(o *Options)) *Canonicalizer {
	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	recognizers := make([]Recognizer, 0, len(opts.Recognizers))
	for _, r := range opts.Recognizers {
		if r != nil {
			recognizers = append(recognizers, r)
		}
	}
	return &Canonicalizer{recognizers: recognizers, now: opts.Now}
}

var defaultCanonicalizer = NewCanonicalizer()

// Serialize normalizes raw with a canonicalizer that knows only the built-in shapes.
func Serialize(raw any, fromAgent, toAgent string) Message {
	return defaultCanonicalizer.Serialize(raw, fromAgent, toAgent)
}

// Serialize normalizes raw into a Message routed fromAgent -> toAgent.
func (c *Canonicalizer) Serialize(raw any, fromAgent, toAgent string) Message {
	msg, _ := c.Normalize(raw, fromAgent, toAgent)
	return msg
}

// Normalize is Serialize that also reports the branch taken. The order is:
// canonical record, other mapping, recognized variant, string fallback.
//
// Routing is stamped in every branch. For canonical input an empty fromAgent
// or toAgent keeps the record's own value, which makes normalizing the
// mapping form of a Message a no-op.
func (c *Canonicalizer) Normalize(raw any, fromAgent, toAgent string) (Message, Shape) {
	switch v := raw.(type) {
	case Message:
		return restamp(v.Clone(), fromAgent, toAgent), ShapeCanonical
	case *Message:
		if v != nil {
			return restamp(v.Clone(), fromAgent, toAgent), ShapeCanonical
		}
	case map[string]any:
		return c.fromMapping(v, fromAgent, toAgent)
	case Variant:
		if msg, shape, ok := c.fromVariant(v, fromAgent, toAgent); ok {
			return msg, shape
		}
	default:
		if m, ok := util.StringKeyedMap(raw); ok {
			return c.fromMapping(m, fromAgent, toAgent)
		}
		for _, recognize := range c.recognizers {
			if variant, ok := recognize(raw); ok && variant != nil {
				if msg, shape, ok := c.fromVariant(variant, fromAgent, toAgent); ok {
					return msg, shape
				}
			}
		}
	}
	return c.fallback(raw, fromAgent, toAgent), ShapeFallback
}

func (c *Canonicalizer) fromMapping(m map[string]any, fromAgent, toAgent string) (Message, Shape) {
	_, hasType := m[KeyType]
	_, hasContent := m[KeyContent]
	if hasType && hasContent {
		if msg, err := fromMap(m, c.now); err == nil {
			return restamp(msg, fromAgent, toAgent), ShapeCanonical
		}
	}
	msg := c.newMessage(TypeSystem, fmt.Sprint(m), fromAgent, toAgent)
	if m != nil {
		msg.Metadata = util.DeepCopyMap(m)
	}
	return msg, ShapeMapping
}

func (c *Canonicalizer) fromVariant(v Variant, fromAgent, toAgent string) (Message, Shape, bool) {
	switch t := v.(type) {
	case AIMessage:
		msg := c.newMessage(TypeAI, t.Content, fromAgent, toAgent)
		if t.AdditionalKwargs != nil {
			msg.Metadata = util.DeepCopyMap(t.AdditionalKwargs)
		}
		return msg, ShapeAI, true
	case *AIMessage:
		if t == nil {
			return Message{}, ShapeFallback, false
		}
		return c.fromVariant(*t, fromAgent, toAgent)
	case HumanMessage:
		return c.newMessage(TypeHuman, t.Content, fromAgent, toAgent), ShapeHuman, true
	case *HumanMessage:
		if t == nil {
			return Message{}, ShapeFallback, false
		}
		return c.fromVariant(*t, fromAgent, toAgent)
	case SystemMessage:
		return c.newMessage(TypeSystem, t.Content, fromAgent, toAgent), ShapeSystem, true
	case *SystemMessage:
		if t == nil {
			return Message{}, ShapeFallback, false
		}
		return c.fromVariant(*t, fromAgent, toAgent)
	case ToolMessage:
		msg := c.newMessage(TypeTool, t.Content, fromAgent, toAgent)
		msg.ToolCallID = t.ToolCallID
		msg.ToolName = t.ToolName
		msg.ToolOutput = t.Content
		return msg, ShapeTool, true
	case *ToolMessage:
		if t == nil {
			return Message{}, ShapeFallback, false
		}
		return c.fromVariant(*t, fromAgent, toAgent)
	default:
		return Message{}, ShapeFallback, false
	}
}

func (c *Canonicalizer) fallback(raw any, fromAgent, toAgent string) Message {
	return c.newMessage(TypeSystem, fmt.Sprint(raw), fromAgent, toAgent)
}

func (c *Canonicalizer) newMessage(t Type, content, fromAgent, toAgent string) Message {
	return Message{
		Type:             t,
		Content:          content,
		Timestamp:        normalizeTime(c.now()),
		Metadata:         map[string]any{},
		AdditionalKwargs: map[string]any{},
		FromAgent:        fromAgent,
		ToAgent:          toAgent,
	}
}

func restamp(m Message, fromAgent, toAgent string) Message {
	if fromAgent != "" {
		m.FromAgent = fromAgent
	}
	if toAgent != "" {
		m.ToAgent = toAgent
	}
	return m
}

// SerializeList normalizes each raw value and returns the records in order.
func (c *Canonicalizer) SerializeList(raws []any, fromAgent, toAgent string) []map[string]any {
	out := make([]map[string]any, len(raws))
	for i, raw := range raws {
		out[i] = c.Serialize(raw, fromAgent, toAgent).ToMap()
	}
	return out
}

// SerializeList is Canonicalizer.SerializeList on the built-in shapes.
func SerializeList(raws []any, fromAgent, toAgent string) []map[string]any {
	return defaultCanonicalizer.SerializeList(raws, fromAgent, toAgent)
}

// DeserializeList decodes records produced by SerializeList, preserving order.
// It fails on the first record that is not a valid message.
func DeserializeList(records []map[string]any) ([]Message, error) {
	out := make([]Message, len(records))
	for i, rec := range records {
		msg, err := FromMap(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = msg
	}
	return out, nil
}
