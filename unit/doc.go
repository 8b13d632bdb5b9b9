// Package unit wraps a model invocation with the shared state substrate.
//
// A Unit reads a snapshot of the shared context, renders its prompt, invokes
// its model and appends the raw reply to the conversation log routed from the
// unit to the requested recipient. The outcome (or error) is recorded under
// the unit's own context scope so other units can read it later. Every call
// is timed, logged and traced.
//
//	u := &unit.Unit{Name: "researcher", Prompt: "You research {{ .topic }}.", Model: m}
//	out, err := u.Call(ctx, env, unit.Input{Plan: []string{"find", "sources"}, To: "writer"})
package unit
