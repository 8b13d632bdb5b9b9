package message

// Variant is a recognized upstream message shape. The set is closed: only the
// types in this file implement it, so a switch over them is exhaustive.
type Variant interface{ isVariant() }

// AIMessage is a model-authored reply. AdditionalKwargs carries provider
// extras (tool calls, refusal, stop reason, ...) and becomes the canonical
// message metadata.
type AIMessage struct {
	Content          string
	AdditionalKwargs map[string]any
}

// isVariant implements the Variant interface for AIMessage.
func (AIMessage) isVariant() {}

// HumanMessage is user-authored input.
type HumanMessage struct {
	Content string
}

// isVariant implements the Variant interface for HumanMessage.
func (HumanMessage) isVariant() {}

// SystemMessage is an instruction or context message.
type SystemMessage struct {
	Content string
}

// isVariant implements the Variant interface for SystemMessage.
func (SystemMessage) isVariant() {}

// ToolMessage is the output of a tool invocation.
type ToolMessage struct {
	Content    string
	ToolCallID string
	ToolName   string
}

// isVariant implements the Variant interface for ToolMessage.
func (ToolMessage) isVariant() {}

// Recognizer translates a provider-specific value into a Variant. It reports
// false when the value is not a shape it knows.
type Recognizer func(raw any) (Variant, bool)

// Shape identifies which normalization branch produced a message.
type Shape int

const (
	// ShapeFallback is an unrecognized value rendered as a system message.
	ShapeFallback Shape = iota
	// ShapeCanonical is an existing Message or a record in its mapping form.
	ShapeCanonical
	// ShapeMapping is an arbitrary mapping wrapped as a system message.
	ShapeMapping
	ShapeAI
	ShapeHuman
	ShapeSystem
	ShapeTool
)

// String returns a short lowercase name for the shape.
func (s Shape) String() string {
	switch s {
	case ShapeCanonical:
		return "canonical"
	case ShapeMapping:
		return "mapping"
	case ShapeAI:
		return "ai"
	case ShapeHuman:
		return "human"
	case ShapeSystem:
		return "system"
	case ShapeTool:
		return "tool"
	default:
		return "fallback"
	}
}

// Degraded reports whether the shape lost type information.
func (s Shape) Degraded() bool { return s == ShapeFallback }
