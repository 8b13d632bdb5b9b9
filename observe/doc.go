// Package observe carries the best-effort observability hook of the shared
// state substrate. Mutating operations on the context store and the
// conversation log describe themselves as an Event and hand it to a Sink.
//
// Sinks must never block the caller: the state and log packages emit events
// after releasing their locks, and AsyncSink decouples slow consumers (log
// handlers, metric backends) through a bounded buffer that drops on overflow.
package observe
