// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing messages and pre-populated conversation logs.
// They are not intended for production usage.
package testutil
