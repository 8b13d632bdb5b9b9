package conversation_test

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/hupe1980/meshstate/conversation"
	"github.com/hupe1980/meshstate/message"
)

var agentNames = []string{"", "A", "B", "C"}

type routed struct {
	from, to string
}

func genRoutes() *rapid.Generator[[]routed] {
	return rapid.SliceOfN(rapid.Custom(func(t *rapid.T) routed {
		return routed{
			from: rapid.SampledFrom(agentNames).Draw(t, "from"),
			to:   rapid.SampledFrom(agentNames).Draw(t, "to"),
		}
	}), 0, 40)
}

func TestPropertyTurnNumbersGapFree(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		routes := genRoutes().Draw(t, "routes")
		l := conversation.NewLog()

		for i, r := range routes {
			turn := l.AddMessage(message.AIMessage{Content: "m"}, r.from, r.to)
			if turn.TurnNumber != i+1 {
				t.Fatalf("turn %d numbered %d", i+1, turn.TurnNumber)
			}
		}
		if l.Len() != len(routes) {
			t.Fatalf("len %d, want %d", l.Len(), len(routes))
		}
	})
}

func TestPropertyFilterMatchesDefinition(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		routes := genRoutes().Draw(t, "routes")
		a := rapid.SampledFrom(agentNames).Draw(t, "a")
		b := rapid.SampledFrom(agentNames).Draw(t, "b")
		limit := rapid.IntRange(-1, 10).Draw(t, "limit")

		l := conversation.NewLog()
		for _, r := range routes {
			l.AddMessage(message.AIMessage{Content: "m"}, r.from, r.to)
		}

		var want []int
		for _, turn := range l.Turns() {
			if (a == "" || turn.Involves(a)) && (b == "" || turn.Involves(b)) {
				want = append(want, turn.TurnNumber)
			}
		}
		if limit > 0 && len(want) > limit {
			want = want[len(want)-limit:]
		}

		got := l.GetConversation(a, b, limit)
		if len(got) != len(want) {
			t.Fatalf("got %d turns, want %d", len(got), len(want))
		}
		for i := range got {
			if got[i].TurnNumber != want[i] {
				t.Fatalf("position %d: turn %d, want %d", i, got[i].TurnNumber, want[i])
			}
		}
	})
}
