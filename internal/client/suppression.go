package client

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type suppressionToken struct {
	id        string
	expect    PlayerState
	expiresAt time.Time
}

// suppressionGuard remembers widget commands issued on behalf of the room so
// the state changes they cause are not reported back as user intents.
type suppressionGuard struct {
	clock  clockwork.Clock
	ttl    time.Duration
	tokens []suppressionToken
}

func newSuppressionGuard(clock clockwork.Clock, ttl time.Duration) *suppressionGuard {
	return &suppressionGuard{
		clock: clock,
		ttl:   ttl,
	}
}

// Arm registers the state the widget is expected to report next.
func (g *suppressionGuard) Arm(expect PlayerState) string {
	g.prune()

	t := suppressionToken{
		id:        uuid.NewString(),
		expect:    expect,
		expiresAt: g.clock.Now().Add(g.ttl),
	}
	g.tokens = append(g.tokens, t)

	return t.id
}

// Consume reports whether observed was caused by an armed command, removing
// the oldest matching token.
func (g *suppressionGuard) Consume(observed PlayerState) bool {
	g.prune()

	for i, t := range g.tokens {
		if t.expect == observed {
			g.tokens = append(g.tokens[:i], g.tokens[i+1:]...)
			return true
		}
	}

	return false
}

func (g *suppressionGuard) Pending() int {
	g.prune()
	return len(g.tokens)
}

func (g *suppressionGuard) Reset() {
	g.tokens = nil
}

func (g *suppressionGuard) prune() {
	now := g.clock.Now()

	live := g.tokens[:0]
	for _, t := range g.tokens {
		if now.Before(t.expiresAt) {
			live = append(live, t)
		}
	}
	g.tokens = live
}
