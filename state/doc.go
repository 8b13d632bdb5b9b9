// Package state provides the shared key/value working context that
// collaborating units read from and write to.
//
// A Context is a plain map with named scopes: values that are themselves
// map[string]any. Reading a scope yields a shallow snapshot, so callers can
// build prompts from it without racing later writes to the same scope.
//
// A Context is not safe for concurrent use. Share one across goroutines only
// behind external synchronization (the root Workspace does this).
package state
