package state

import (
	"github.com/hupe1980/meshstate/internal/util"
	"github.com/hupe1980/meshstate/logging"
	"github.com/hupe1980/meshstate/observe"
)

// Options configures a Context.
type Options struct {
	// Sink receives an event for every Set, Update and SetScope.
	Sink observe.Sink
	// Actor is reported as the event actor.
	Actor string
	// Logger is used for debug tracing of mutations.
	Logger logging.Logger
}

// Context is a scoped key/value store.
type Context struct {
	data map[string]any
	opts Options
}

// New creates a Context seeded with a deep copy of seed.
func New(seed map[string]any, optFns ...func(o *Options)) *Context {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Sink = observe.OrNop(opts.Sink)
	opts.Logger = logging.OrNoOp(opts.Logger)

	data := util.DeepCopyMap(seed)
	if data == nil {
		data = make(map[string]any)
	}
	return &Context{data: data, opts: opts}
}

// Get returns the value stored under key, or def when absent.
func (c *Context) Get(key string, def any) any {
	if v, ok := c.data[key]; ok {
		return v
	}
	return def
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Set stores value under key and returns c for chaining.
func (c *Context) Set(key string, value any) *Context {
	c.data[key] = value
	c.emit(observe.NewEvent(observe.OpSet, c.opts.Actor, observe.OutcomeOK).With("key", key))
	return c
}

// Update merges values into the store. Later writes win.
func (c *Context) Update(values map[string]any) *Context {
	for k, v := range values {
		c.data[k] = v
	}
	c.emit(observe.NewEvent(observe.OpUpdate, c.opts.Actor, observe.OutcomeOK).With("keys", len(values)))
	return c
}

// GetScope returns a shallow copy of the map stored under scope. A non-map
// value is returned as stored, and def is returned when scope is absent.
func (c *Context) GetScope(scope string, def map[string]any) any {
	v, ok := c.data[scope]
	if !ok {
		return def
	}
	if m, ok := v.(map[string]any); ok {
		return util.ShallowCopyMap(m)
	}
	return v
}

// Scope is GetScope for callers that only care about map scopes. It returns
// an empty map when scope is absent or not a map.
func (c *Context) Scope(scope string) map[string]any {
	if m, ok := c.GetScope(scope, nil).(map[string]any); ok && m != nil {
		return m
	}
	return map[string]any{}
}

// SetScope stores a shallow copy of value under scope.
func (c *Context) SetScope(scope string, value map[string]any) *Context {
	cp := util.ShallowCopyMap(value)
	if cp == nil {
		cp = map[string]any{}
	}
	c.data[scope] = cp
	c.emit(observe.NewEvent(observe.OpSetScope, c.opts.Actor, observe.OutcomeOK).
		With("scope", scope).
		With("keys", len(cp)))
	return c
}

// Copy returns an independent deep copy. Options are carried over.
func (c *Context) Copy() *Context {
	return &Context{data: util.DeepCopyMap(c.data), opts: c.opts}
}

// ToMap returns a shallow copy of the whole store.
func (c *Context) ToMap() map[string]any {
	return util.ShallowCopyMap(c.data)
}

// Len returns the number of top level keys.
func (c *Context) Len() int { return len(c.data) }

func (c *Context) emit(e observe.Event) {
	c.opts.Logger.Debug("context mutated", "operation", string(e.Operation), "actor", e.Actor)
	c.opts.Sink.Emit(e)
}
