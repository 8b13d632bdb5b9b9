package conversation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/meshstate/logging"
	"github.com/hupe1980/meshstate/message"
	"github.com/hupe1980/meshstate/observe"
)

// Options configures a Log.
type Options struct {
	// ID identifies the log and is stamped as the conversation id of every
	// message that does not carry one. A random UUID is used when empty.
	ID string
	// Canonicalizer normalizes raw replies (defaults to the built-in shapes only).
	Canonicalizer *message.Canonicalizer
	// Sink receives an add_message event per appended turn.
	Sink observe.Sink
	Logger logging.Logger
	// Now stamps turn timestamps (defaults to time.Now).
	Now func() time.Time
}

// Log is the append-only conversation log with per-agent inboxes.
// It is safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	turns   []Turn
	inboxes map[string][]message.Message

	id     string
	canon  *message.Canonicalizer
	sink   observe.Sink
	logger logging.Logger
	now    func() time.Time
}

// NewLog creates an empty log.
func NewLog(optFns ...func(o *Options)) *Log {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Canonicalizer == nil {
		opts.Canonicalizer = message.NewCanonicalizer()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Log{
		inboxes: make(map[string][]message.Message),
		id:      opts.ID,
		canon:   opts.Canonicalizer,
		sink:    observe.OrNop(opts.Sink),
		logger:  logging.OrNoOp(opts.Logger),
		now:     opts.Now,
	}
}

// ID returns the log identifier.
func (l *Log) ID() string { return l.id }

// AddMessage canonicalizes raw, routes it fromAgent -> toAgent and appends it
// as the next turn. An empty toAgent records a broadcast turn that lands only
// in the sender's inbox. The returned Turn is a copy.
func (l *Log) AddMessage(raw any, fromAgent, toAgent string) Turn {
	l.mu.Lock()
	turn, shape := l.addLocked(raw, fromAgent, toAgent)
	out := turn.Clone()
	l.mu.Unlock()

	outcome := observe.OutcomeOK
	if shape.Degraded() {
		outcome = observe.OutcomeDegraded
		l.logger.Warn("message degraded to system fallback", "from_agent", fromAgent, "turn", out.TurnNumber)
	}
	l.sink.Emit(observe.NewEvent(observe.OpAddMessage, fromAgent, outcome).
		With("turn", out.TurnNumber).
		With("to_agent", out.ToAgent).
		With("shape", shape.String()))

	return out
}

// addLocked performs the whole append. l.mu must be held for writing.
func (l *Log) addLocked(raw any, fromAgent, toAgent string) (Turn, message.Shape) {
	msg, shape := l.canon.Normalize(raw, fromAgent, toAgent)
	// the log always owns the routing of its copies, even for canonical input
	msg.FromAgent = fromAgent
	msg.ToAgent = toAgent
	if msg.ConversationID == "" {
		msg.ConversationID = l.id
	}

	recipient := toAgent
	if recipient == "" {
		recipient = Broadcast
	}
	turn := Turn{
		FromAgent:   fromAgent,
		ToAgent:     recipient,
		Message:     msg,
		TurnNumber:  len(l.turns) + 1,
		Timestamp:   l.now().UTC().Round(0),
		Unaddressed: toAgent == "",
	}
	l.appendLocked(turn, !turn.Unaddressed)
	return turn, shape
}

// appendLocked stores turn and its inbox copies. l.mu must be held for writing.
func (l *Log) appendLocked(turn Turn, addressed bool) {
	l.turns = append(l.turns, turn)
	l.inboxes[turn.FromAgent] = append(l.inboxes[turn.FromAgent], turn.Message.Clone())
	if addressed {
		l.inboxes[turn.ToAgent] = append(l.inboxes[turn.ToAgent], turn.Message.Clone())
	}
}

// GetConversation returns turns involving agentA and agentB. Each non-empty
// filter matches a turn when it equals either the sender or the recipient;
// both filters must match. With limit > 0 only the most recent limit matches
// are returned, still in log order.
func (l *Log) GetConversation(agentA, agentB string, limit int) []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	matches := make([]int, 0, len(l.turns))
	for i, t := range l.turns {
		if agentA != "" && !t.Involves(agentA) {
			continue
		}
		if agentB != "" && !t.Involves(agentB) {
			continue
		}
		matches = append(matches, i)
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[len(matches)-limit:]
	}

	out := make([]Turn, len(matches))
	for i, idx := range matches {
		out[i] = l.turns[idx].Clone()
	}
	return out
}

// Turns returns a copy of the whole log.
func (l *Log) Turns() []Turn {
	return l.GetConversation("", "", 0)
}

// Inbox returns copies of the messages sent or received by agent.
func (l *Log) Inbox(agent string) []message.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	box := l.inboxes[agent]
	out := make([]message.Message, len(box))
	for i, m := range box {
		out[i] = m.Clone()
	}
	return out
}

// Agents returns the sorted names of all agents that own an inbox. The
// anonymous sender is reported as "".
func (l *Log) Agents() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.inboxes))
	for name := range l.inboxes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of turns.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Snapshot encodes every turn as a plain record suitable for JSON.
func (l *Log) Snapshot() []map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]map[string]any, len(l.turns))
	for i, t := range l.turns {
		out[i] = t.ToMap()
	}
	return out
}

// Restore rebuilds a log, including its inboxes, from a Snapshot. Turn
// numbers must run 1..n in order. Restoring emits no events.
func Restore(records []map[string]any, optFns ...func(o *Options)) (*Log, error) {
	l := NewLog(optFns...)

	l.mu.Lock()
	defer l.mu.Unlock()

	for i, rec := range records {
		t, err := TurnFromMap(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if want := len(l.turns) + 1; t.TurnNumber != want {
			return nil, fmt.Errorf("record %d: %w: turn number %d, want %d", i, ErrInvalidTurn, t.TurnNumber, want)
		}
		l.appendLocked(t, !t.Broadcasted())
	}

	l.logger.Debug("conversation restored", "log_id", l.id, "turns", len(l.turns))
	return l, nil
}
