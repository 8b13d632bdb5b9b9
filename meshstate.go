// Package meshstate provides a high-level façade over the shared state
// substrate of a multi-unit reasoning system: the scoped working context, the
// routed conversation log and the registry of collaboration units. Most
// applications interact with this package by:
//  1. Creating a Workspace via New() or NewFromConfig()
//  2. Registering one or more units (name, prompt, model)
//  3. Invoking units (Invoke, Fanout) and reading the log and context back
//
// The façade wires the observability pipeline (structured logging, event
// sinks, Prometheus counters, OpenTelemetry spans) and serializes access to
// the shared context, which is not safe for concurrent use on its own.
package meshstate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/meshstate/conversation"
	"github.com/hupe1980/meshstate/logging"
	"github.com/hupe1980/meshstate/message"
	"github.com/hupe1980/meshstate/model/anthropic"
	"github.com/hupe1980/meshstate/model/openai"
	"github.com/hupe1980/meshstate/observe"
	"github.com/hupe1980/meshstate/registry"
	"github.com/hupe1980/meshstate/state"
	"github.com/hupe1980/meshstate/unit"
)

// Options configures the Workspace.
type Options struct {
	// ID identifies the conversation log (random UUID when empty).
	ID string
	// Actor is reported on context mutation events.
	Actor string
	// Seed is deep-copied into the shared context.
	Seed map[string]any

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Sinks receive every state event in addition to the built-in ones.
	Sinks []observe.Sink
	// AsyncEvents decouples sinks from callers through a bounded buffer.
	AsyncEvents bool
	// EventBufferSize sets the async buffer length (observe.DefaultBufferSize when 0).
	EventBufferSize int
	// LogEvents routes events through Logger.
	LogEvents bool

	// MetricsRegisterer enables Prometheus counters when set.
	MetricsRegisterer prometheus.Registerer
	MetricsNamespace  string

	// Recognizers extend the canonicalizer. The OpenAI and Anthropic
	// recognizers are always installed.
	Recognizers []message.Recognizer

	// Tracer defaults to the global OpenTelemetry tracer provider.
	Tracer trace.Tracer

	// MaxConcurrentCalls limits the number of unit calls that can execute
	// simultaneously. Set to 0 for unlimited.
	MaxConcurrentCalls int
	// CallTimeout bounds a single unit call; 0 disables it.
	CallTimeout time.Duration
}

// Workspace aggregates the shared context, the conversation log and the unit registry.
type Workspace struct {
	opts Options

	mu  sync.Mutex // guards ctx
	ctx *state.Context

	log      *conversation.Log
	registry *registry.Registry
	logger   logging.Logger

	async   *observe.AsyncSink
	metrics *observe.MetricsSink
	sem     chan struct{}

	closeOnce sync.Once
}

// New creates a Workspace with optional overrides.
func New(optFns ...func(o *Options)) (*Workspace, error) {
	opts := Options{
		Actor:            "workspace",
		Logger:           logging.NoOpLogger{},
		MetricsNamespace: "meshstate",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	w := &Workspace{
		opts:     opts,
		registry: registry.New(),
		logger:   opts.Logger,
	}

	sinks := append([]observe.Sink(nil), opts.Sinks...)
	if opts.LogEvents {
		sinks = append(sinks, observe.NewLogSink(opts.Logger))
	}
	if opts.MetricsRegisterer != nil {
		m, err := observe.NewMetricsSink(opts.MetricsRegisterer, opts.MetricsNamespace)
		if err != nil {
			return nil, err
		}
		w.metrics = m
		sinks = append(sinks, m)
	}

	sink := observe.Multi(sinks...)
	if opts.AsyncEvents {
		w.async = observe.NewAsyncSink(sink, func(o *observe.AsyncOptions) {
			o.BufferSize = opts.EventBufferSize
			if w.metrics != nil {
				o.OnDrop = w.metrics.ObserveDrop
			}
		})
		sink = w.async
	}

	recognizers := append([]message.Recognizer{openai.Recognize, anthropic.Recognize}, opts.Recognizers...)
	canon := message.NewCanonicalizer(func(o *message.Options) {
		o.Recognizers = recognizers
	})

	w.ctx = state.New(opts.Seed, func(o *state.Options) {
		o.Sink = sink
		o.Actor = opts.Actor
		o.Logger = opts.Logger
	})
	w.log = conversation.NewLog(func(o *conversation.Options) {
		o.ID = opts.ID
		o.Canonicalizer = canon
		o.Sink = sink
		o.Logger = opts.Logger
	})

	if opts.MaxConcurrentCalls > 0 {
		w.sem = make(chan struct{}, opts.MaxConcurrentCalls)
	}

	w.logger.Info("workspace created", "log_id", w.log.ID())
	return w, nil
}

// Register adds a unit.
func (w *Workspace) Register(u *unit.Unit) error {
	if err := w.registry.Register(u); err != nil {
		return err
	}
	w.logger.Debug("unit registered", "unit", u.Name)
	return nil
}

// Registry exposes the unit registry.
func (w *Workspace) Registry() *registry.Registry { return w.registry }

// Log exposes the conversation log.
func (w *Workspace) Log() *conversation.Log { return w.log }

// WithContext runs fn with exclusive access to the shared context. fn must
// not retain c.
func (w *Workspace) WithContext(fn func(c *state.Context)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w.ctx)
}

// Scope returns a snapshot of a context scope.
func (w *Workspace) Scope(name string) map[string]any {
	var out map[string]any
	w.WithContext(func(c *state.Context) { out = c.Scope(name) })
	return out
}

// SetScope replaces a context scope.
func (w *Workspace) SetScope(name string, value map[string]any) {
	w.WithContext(func(c *state.Context) { c.SetScope(name, value) })
}

// ContextSnapshot returns an independent deep copy of the shared context.
func (w *Workspace) ContextSnapshot() *state.Context {
	var out *state.Context
	w.WithContext(func(c *state.Context) { out = c.Copy() })
	return out
}

func (w *Workspace) env() unit.Env {
	return unit.Env{
		Context: w.ctx,
		Log:     w.log,
		Logger:  w.logger,
		Tracer:  w.opts.Tracer,
		Guard:   &w.mu,
	}
}

// Invoke calls a registered unit.
func (w *Workspace) Invoke(ctx context.Context, unitName string, in unit.Input) (unit.Output, error) {
	u, err := w.registry.Get(unitName)
	if err != nil {
		return unit.Output{}, err
	}

	release, err := w.acquire(ctx)
	if err != nil {
		return unit.Output{}, err
	}
	defer release()

	if w.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.CallTimeout)
		defer cancel()
	}
	return u.Call(ctx, w.env(), in)
}

// Fanout invokes several registered units concurrently with the same input.
// All calls share one request id, outputs are returned in the order of names
// and the first error cancels the remaining calls.
func (w *Workspace) Fanout(ctx context.Context, names []string, in unit.Input) ([]unit.Output, error) {
	for _, name := range names {
		if _, err := w.registry.Get(name); err != nil {
			return nil, err
		}
	}
	if _, ok := unit.RequestIDFromContext(ctx); !ok {
		ctx = unit.WithRequestID(ctx, uuid.NewString())
	}

	outs := make([]unit.Output, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			out, err := w.Invoke(gctx, name, in)
			if err != nil {
				return err
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}

// acquire takes a concurrency slot. The returned func releases it.
func (w *Workspace) acquire(ctx context.Context) (func(), error) {
	if w.sem == nil {
		return func() {}, nil
	}
	select {
	case w.sem <- struct{}{}:
		return func() { <-w.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for call slot: %w", ctx.Err())
	}
}

// Snapshot returns the conversation log as plain records.
func (w *Workspace) Snapshot() []map[string]any { return w.log.Snapshot() }

// Close flushes pending events. The workspace must not be used afterwards.
func (w *Workspace) Close() error {
	var err error
	w.closeOnce.Do(func() {
		if w.async != nil {
			err = w.async.Close()
		}
		w.logger.Info("workspace closed", "log_id", w.log.ID(), "turns", w.log.Len())
		if s, ok := w.logger.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	})
	return err
}
