package observe

import (
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the AsyncSink queue length used when none is given.
const DefaultBufferSize = 256

// AsyncOptions configures an AsyncSink.
type AsyncOptions struct {
	BufferSize int
	// OnDrop is called synchronously for every event rejected because the
	// buffer is full or the sink is closed. It must be cheap.
	OnDrop func(Event)
}

// AsyncSink forwards events to a downstream Sink from a single worker
// goroutine. Emit never blocks: when the buffer is full the event is dropped.
type AsyncSink struct {
	mu        sync.RWMutex
	closed    bool
	ch        chan Event
	next      Sink
	onDrop    func(Event)
	dropped   atomic.Uint64
	done      chan struct{}
	closeOnce sync.Once
}

// NewAsyncSink starts the worker and returns the sink. Call Close to flush.
func NewAsyncSink(next Sink, optFns ...func(o *AsyncOptions)) *AsyncSink {
	opts := AsyncOptions{BufferSize: DefaultBufferSize}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	s := &AsyncSink{
		ch:     make(chan Event, opts.BufferSize),
		next:   OrNop(next),
		onDrop: opts.OnDrop,
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for e := range s.ch {
		s.next.Emit(e)
	}
}

// Emit enqueues e or drops it.
func (s *AsyncSink) Emit(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(e)
		return
	}
	select {
	case s.ch <- e:
	default:
		s.drop(e)
	}
}

func (s *AsyncSink) drop(e Event) {
	s.dropped.Add(1)
	if s.onDrop != nil {
		s.onDrop(e)
	}
}

// Dropped returns how many events were discarded so far.
func (s *AsyncSink) Dropped() uint64 { return s.dropped.Load() }

// Close stops accepting events and waits until the queued ones are delivered.
func (s *AsyncSink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
	<-s.done
	return nil
}
