package unit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/meshstate/conversation"
	"github.com/hupe1980/meshstate/internal/util"
	"github.com/hupe1980/meshstate/logging"
	"github.com/hupe1980/meshstate/message"
	"github.com/hupe1980/meshstate/model"
	"github.com/hupe1980/meshstate/state"
)

const instrumentationName = "github.com/hupe1980/meshstate/unit"

// DefaultContextScope is the scope read as shared context when a unit does
// not name one.
const DefaultContextScope = "shared"

// Scope keys written after every call.
const (
	KeyRawResponse = "raw_response"
	KeyQuery       = "query"
	KeyUsedContext = "used_context"
	KeyError       = "error"
)

var (
	// ErrNoModel is returned when a unit without a model is called.
	ErrNoModel = errors.New("unit has no model")
	// ErrInvalidUnit is returned for a unit without a name.
	ErrInvalidUnit = errors.New("invalid unit")
	// ErrInvalidEnv is returned when Env lacks a context or a log.
	ErrInvalidEnv = errors.New("invalid unit environment")
)

// Unit is one collaborating participant.
type Unit struct {
	Name        string
	Description string
	// Prompt is the system prompt. It may reference shared context keys as
	// {{ .key }}.
	Prompt string
	// Scope is where call results are recorded (defaults to Name).
	Scope string
	// ContextScope is read as the shared context (defaults to DefaultContextScope).
	ContextScope string
	Model        model.Model
}

// Env is the shared substrate a unit works against. Context and Log are
// required.
type Env struct {
	Context *state.Context
	Log     *conversation.Log
	Logger  logging.Logger
	// Tracer defaults to the global OpenTelemetry tracer provider.
	Tracer trace.Tracer
	// Guard serializes access to Context when units run concurrently.
	Guard sync.Locker
}

// Input is the request handed to a unit.
type Input struct {
	// Plan steps are joined with spaces into the query.
	Plan []string
	// Context overrides the shared context snapshot when non-nil.
	Context map[string]any
	// To is the recipient of the reply; empty broadcasts.
	To string
}

// Query returns the joined plan.
func (in Input) Query() string { return strings.Join(in.Plan, " ") }

// Output is the result of a successful call.
type Output struct {
	RequestID   string
	Reply       any
	Turn        conversation.Turn
	Query       string
	UsedContext map[string]any
}

// Validate checks the static configuration of the unit.
func (u *Unit) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidUnit)
	}
	if u.Model == nil {
		return fmt.Errorf("%w: %s", ErrNoModel, u.Name)
	}
	return nil
}

// ResultScope returns the scope call results are written to.
func (u *Unit) ResultScope() string {
	if u.Scope != "" {
		return u.Scope
	}
	return u.Name
}

func (u *Unit) contextScope() string {
	if u.ContextScope != "" {
		return u.ContextScope
	}
	return DefaultContextScope
}

// Call runs the unit once. On failure the error is recorded under the unit's
// scope and returned; nothing is appended to the log.
func (u *Unit) Call(ctx context.Context, env Env, in Input) (Output, error) {
	if err := u.Validate(); err != nil {
		return Output{}, err
	}
	if env.Context == nil || env.Log == nil {
		return Output{}, fmt.Errorf("%w: context and log are required", ErrInvalidEnv)
	}

	ctx, requestID := ensureRequestID(ctx)
	logger := logging.ForRequest(env.Logger, env.Log.ID(), requestID)
	tracer := env.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	ctx, span := tracer.Start(ctx, "unit.call",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("unit.name", u.Name),
			attribute.String("unit.to", in.To),
		))
	defer span.End()

	start := time.Now()
	logger.Info("unit call started", "unit", u.Name)

	out, err := u.call(ctx, env, in, requestID)
	dur := time.Since(start)

	if il, ok := logger.(invocationLogger); ok {
		il.LogInvocation(u.Name, dur, err == nil, err)
	} else if err != nil {
		logger.Error("unit call failed", "unit", u.Name, "duration", dur, "error", err)
	} else {
		logger.Info("unit call completed", "unit", u.Name, "duration", dur)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Output{}, err
	}
	span.SetAttributes(attribute.Int("conversation.turn", out.Turn.TurnNumber))
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// invocationLogger is implemented by logging.StructuredLogger.
type invocationLogger interface {
	LogInvocation(unit string, dur time.Duration, success bool, err error)
}

func (u *Unit) call(ctx context.Context, env Env, in Input, requestID string) (Output, error) {
	query := in.Query()

	used := in.Context
	if used == nil {
		withGuard(env.Guard, func() {
			used = env.Context.Scope(u.contextScope())
		})
	} else {
		used = util.ShallowCopyMap(used)
	}

	fail := func(err error) (Output, error) {
		withGuard(env.Guard, func() {
			env.Context.SetScope(u.ResultScope(), map[string]any{
				KeyError:       err.Error(),
				KeyQuery:       query,
				KeyUsedContext: used,
			})
		})
		return Output{}, err
	}

	prompt, err := util.RenderTemplate(u.Prompt, used)
	if err != nil {
		return fail(fmt.Errorf("unit %s: %w", u.Name, err))
	}

	msgs := []message.Message{
		message.New(message.TypeSystem, prompt),
		message.New(message.TypeSystem, "Shared Context: "+formatContext(used)),
		message.New(message.TypeHuman, query),
	}

	reply, err := u.Model.Invoke(ctx, msgs)
	if err != nil {
		return fail(fmt.Errorf("unit %s: invoke model: %w", u.Name, err))
	}

	turn := env.Log.AddMessage(reply, u.Name, in.To)

	withGuard(env.Guard, func() {
		env.Context.SetScope(u.ResultScope(), map[string]any{
			KeyRawResponse: reply,
			KeyQuery:       query,
			KeyUsedContext: used,
		})
	})

	return Output{
		RequestID:   requestID,
		Reply:       reply,
		Turn:        turn,
		Query:       query,
		UsedContext: used,
	}, nil
}

// formatContext renders the shared context deterministically (sorted keys).
func formatContext(ctx map[string]any) string {
	data, err := json.Marshal(ctx)
	if err != nil {
		return fmt.Sprint(ctx)
	}
	return string(data)
}

func withGuard(l sync.Locker, fn func()) {
	if l == nil {
		fn()
		return
	}
	l.Lock()
	defer l.Unlock()
	fn()
}
