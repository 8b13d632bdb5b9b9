package message

import "fmt"

// Type is the closed set of canonical message kinds.
type Type string

const (
	TypeHuman    Type = "human"
	TypeAI       Type = "ai"
	TypeSystem   Type = "system"
	TypeTool     Type = "tool"
	TypeFunction Type = "function"
)

// Types lists every valid Type in declaration order.
func Types() []Type {
	return []Type{TypeHuman, TypeAI, TypeSystem, TypeTool, TypeFunction}
}

// Valid reports whether t is one of the declared kinds.
func (t Type) Valid() bool {
	switch t {
	case TypeHuman, TypeAI, TypeSystem, TypeTool, TypeFunction:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (t Type) String() string { return string(t) }

// ParseType converts s into a Type, rejecting unknown kinds.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown message type %q", ErrInvalidRecord, s)
	}
	return t, nil
}
